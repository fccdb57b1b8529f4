/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package pdataviews

import (
	"github.com/otap-dataflow/dataflow-go/internal/otap"
)

// BundleView lazily builds a RecordView per payload type it's asked
// for, caching each one for the life of the bundle it wraps.
type BundleView struct {
	bundle *otap.OtapArrowRecords
	views  map[otap.ArrowPayloadType]*RecordView
}

// NewBundleView wraps bundle. bundle is not retained; the caller owns
// its lifetime (and must not Release it) for as long as the view is
// used.
func NewBundleView(bundle *otap.OtapArrowRecords) *BundleView {
	return &BundleView{bundle: bundle, views: make(map[otap.ArrowPayloadType]*RecordView)}
}

// Record returns a RecordView over t's batch, or false if the bundle
// carries no batch of that payload type.
func (bv *BundleView) Record(t otap.ArrowPayloadType) (*RecordView, bool) {
	if v, ok := bv.views[t]; ok {
		return v, true
	}
	b, ok := bv.bundle.Get(t)
	if !ok || b.Record == nil {
		return nil, false
	}
	v := NewRecordView(b.Record)
	bv.views[t] = v
	return v, true
}

// RowCount is bundle.RowCount(t), exposed here so callers holding only
// a BundleView don't also need to import internal/otap.
func (bv *BundleView) RowCount(t otap.ArrowPayloadType) int64 {
	return bv.bundle.RowCount(t)
}
