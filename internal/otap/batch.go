/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
)

// metaPayloadType is the Arrow schema metadata key identifying which
// ArrowPayloadType a record holds; required by invariant (c) in §4.2.
const metaPayloadType = "otap.payload_type"

// metaSortColumn records which column a batch is sorted by, when one
// is claimed; validate_integrity checks the claim against reality.
const metaSortColumn = "otap.sort_column"

// metaDeltaEncoded, when set to "true" in schema metadata, marks a
// batch whose parent-id column holds deltas rather than absolute
// values (see transport.go).
const metaDeltaEncoded = "otap.delta_encoded"

// RecordBatch pairs one Arrow record with the payload type it
// represents.
type RecordBatch struct {
	PayloadType ArrowPayloadType
	Record      arrow.Record
}

func newRecordBatch(t ArrowPayloadType, rec arrow.Record) *RecordBatch {
	return &RecordBatch{PayloadType: t, Record: rec}
}

// Release drops this batch's reference on its underlying Arrow record.
func (b *RecordBatch) Release() {
	if b.Record != nil {
		b.Record.Release()
	}
}

// Retain adds a reference to this batch's underlying Arrow record,
// used when a Broadcast dispatch (§4.1) hands the same bundle to more
// than one downstream peer: each peer gets its own reference to
// release independently.
func (b *RecordBatch) Retain() {
	if b.Record != nil {
		b.Record.Retain()
	}
}

// OtapArrowRecords is the full bundle of record batches making up one
// OTAP message: a map from payload type to the (possibly absent)
// batch carrying it.
type OtapArrowRecords struct {
	Signal  graph.Signal
	Batches map[ArrowPayloadType]*RecordBatch
}

// NewOtapArrowRecords returns an empty bundle for the given signal.
func NewOtapArrowRecords(signal graph.Signal) *OtapArrowRecords {
	return &OtapArrowRecords{Signal: signal, Batches: make(map[ArrowPayloadType]*RecordBatch)}
}

// Get returns the batch for t, if present.
func (o *OtapArrowRecords) Get(t ArrowPayloadType) (*RecordBatch, bool) {
	b, ok := o.Batches[t]
	return b, ok
}

// set installs rec as the batch for t. The record's schema metadata is
// left as it is.
func (o *OtapArrowRecords) set(t ArrowPayloadType, rec arrow.Record) {
	o.Batches[t] = newRecordBatch(t, rec)
}

// Release drops every batch's reference.
func (o *OtapArrowRecords) Release() {
	for _, b := range o.Batches {
		b.Release()
	}
}

// Retain adds a reference to every batch, mirroring Release. Used to
// hand one bundle to several downstream peers under Broadcast dispatch
// without each peer racing to free the others' shares.
func (o *OtapArrowRecords) Retain() {
	for _, b := range o.Batches {
		b.Retain()
	}
}

// RowCount returns the number of rows in the given payload type's
// batch, or 0 if absent.
func (o *OtapArrowRecords) RowCount(t ArrowPayloadType) int64 {
	b, ok := o.Batches[t]
	if !ok || b.Record == nil {
		return 0
	}
	return b.Record.NumRows()
}

// mainPayloadFor returns the top-level record batch type for a
// bundle's signal: the one carrying resource_id/scope_id and whose
// rows are "the records themselves" (log records, spans, metrics).
func mainPayloadFor(signal graph.Signal) ArrowPayloadType {
	switch signal {
	case graph.SignalOtapTraces:
		return Spans
	case graph.SignalOtapLogs:
		return Logs
	case graph.SignalOtapMetrics:
		return Metrics
	default:
		return Spans
	}
}

func resourceAttrsFor(signal graph.Signal) ArrowPayloadType {
	if signal == graph.SignalOtapMetrics {
		return ResourceMetricsAttrs
	}
	return ResourceAttrs
}

func scopeAttrsFor(signal graph.Signal) ArrowPayloadType {
	if signal == graph.SignalOtapMetrics {
		return ScopeMetricsAttrs
	}
	return ScopeAttrs
}
