/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"github.com/apache/arrow-go/v18/arrow"
	"go.opentelemetry.io/collector/pdata/pcommon"
)

// attrRef points at one row of an attribute batch.
type attrRef struct {
	rec arrow.Record
	row int
}

// childRef points at one row of a child batch (events, links) keyed
// by its parent's id.
type childRef struct {
	rec arrow.Record
	row int
}

// groupAttrRows indexes every row of payload type t by the value of
// its parentCol column, so decoders can look up "all attribute rows
// belonging to parent id X" in O(1).
func groupAttrRows(o *OtapArrowRecords, t ArrowPayloadType, parentCol string) map[uint32][]attrRef {
	out := make(map[uint32][]attrRef)
	b, ok := o.Get(t)
	if !ok {
		return out
	}
	rec := b.Record
	n := int(rec.NumRows())
	for row := 0; row < n; row++ {
		pid := columnU32(rec, parentCol, row)
		out[pid] = append(out[pid], attrRef{rec: rec, row: row})
	}
	return out
}

// groupChildRows is groupAttrRows's analogue for non-attribute child
// batches (SpanEvents, SpanLinks), which carry their own "id" plus
// domain columns rather than a key/value pair.
func groupChildRows(o *OtapArrowRecords, t ArrowPayloadType, parentCol string) map[uint32][]childRef {
	out := make(map[uint32][]childRef)
	b, ok := o.Get(t)
	if !ok {
		return out
	}
	rec := b.Record
	n := int(rec.NumRows())
	for row := 0; row < n; row++ {
		pid := columnU32(rec, parentCol, row)
		out[pid] = append(out[pid], childRef{rec: rec, row: row})
	}
	return out
}

// writeAttrInto materializes one attribute row into m.
func writeAttrInto(m pcommon.Map, ref attrRef) {
	key := columnStr(ref.rec, "key", ref.row)
	v := m.PutEmpty(key)
	readAttrValue(ref.rec, ref.row, v)
}

func columnBytes16(rec arrow.Record, name string, row int) [16]byte {
	var out [16]byte
	b := columnBytes(rec, name, row)
	copy(out[:], b)
	return out
}

func columnBytes8(rec arrow.Record, name string, row int) [8]byte {
	var out [8]byte
	b := columnBytes(rec, name, row)
	copy(out[:], b)
	return out
}
