/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/otap-dataflow/dataflow-go/internal/telemetry"
)

// dictionaryOverflowGuard is the estimated-cardinality threshold past
// which a string column is left plain instead of dictionary-encoded.
// The dictionary index type is Uint16 (65536 slots); this stays well
// under that so the HyperLogLog estimate's error margin never lets an
// actually-overflowing column slip through.
const dictionaryOverflowGuard = 55000

// ApplyTransportOptimizations dictionary-encodes every string column
// and delta-encodes the parent_id column (present on every
// attribute/child batch) of each batch in o, in place. Rows are
// assumed sorted ascending by parent_id, which the builders in
// convert_*.go guarantee by construction (attributes of one parent
// are always appended contiguously, and parents are visited in
// increasing id order).
//
// metrics may be nil (tests, offline tooling); when supplied, every
// string column's distinct-value cardinality is fed into its
// HyperLogLog sketch (internal/telemetry) both as an exported gauge and
// as the dictionary-overflow heuristic's input.
func ApplyTransportOptimizations(o *OtapArrowRecords, mem memory.Allocator, metrics *telemetry.Set) {
	for t, b := range o.Batches {
		o.Batches[t] = newRecordBatch(t, optimizeRecord(mem, b.Record, metrics, t))
		b.Release()
	}
}

// UndoTransportOptimizations reverses ApplyTransportOptimizations,
// yielding a batch equivalent to the pre-optimization one (semantic
// equality: dictionary insertion order is not preserved).
func UndoTransportOptimizations(o *OtapArrowRecords, mem memory.Allocator) {
	for t, b := range o.Batches {
		o.Batches[t] = newRecordBatch(t, deoptimizeRecord(mem, b.Record))
		b.Release()
	}
}

func optimizeRecord(mem memory.Allocator, rec arrow.Record, metrics *telemetry.Set, payloadType ArrowPayloadType) arrow.Record {
	fields := rec.Schema().Fields()
	cols := make([]arrow.Array, len(fields))
	newFields := make([]arrow.Field, len(fields))
	deltaCol := -1

	for i, f := range fields {
		col := rec.Column(i)
		switch {
		case f.Type.ID() == arrow.STRING && shouldDictionaryEncode(metrics, payloadType, f.Name, col.(*array.String)):
			dictType := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Uint16, ValueType: arrow.BinaryTypes.String}
			encoded, ok := dictionaryEncodeColumn(mem, col.(*array.String))
			if !ok {
				// Overflowed the sketch's estimate despite the guard;
				// keep the column plain rather than panic.
				col.Retain()
				cols[i] = col
				newFields[i] = f
				continue
			}
			cols[i] = encoded
			newFields[i] = arrow.Field{Name: f.Name, Type: dictType, Nullable: f.Nullable}
		case f.Name == "parent_id" && f.Type.ID() == arrow.UINT32:
			cols[i] = deltaEncodeUint32(mem, col.(*array.Uint32))
			newFields[i] = f
			deltaCol = i
		default:
			col.Retain()
			cols[i] = col
			newFields[i] = f
		}
	}

	meta := map[string]string{metaDeltaEncoded: "false"}
	if deltaCol >= 0 {
		meta[metaDeltaEncoded] = "true"
	}
	schema := arrow.NewSchema(newFields, metadataFrom(meta))
	out := array.NewRecord(schema, cols, rec.NumRows())
	for _, c := range cols {
		c.Release()
	}
	return out
}

func deoptimizeRecord(mem memory.Allocator, rec arrow.Record) arrow.Record {
	fields := rec.Schema().Fields()
	cols := make([]arrow.Array, len(fields))
	newFields := make([]arrow.Field, len(fields))
	delta := rec.Schema().Metadata().FindKey(metaDeltaEncoded) >= 0 &&
		rec.Schema().Metadata().Values()[rec.Schema().Metadata().FindKey(metaDeltaEncoded)] == "true"

	for i, f := range fields {
		col := rec.Column(i)
		switch {
		case f.Type.ID() == arrow.DICTIONARY:
			cols[i] = dictionaryDecodeColumn(mem, col.(*array.Dictionary))
			newFields[i] = arrow.Field{Name: f.Name, Type: arrow.BinaryTypes.String, Nullable: f.Nullable}
		case f.Name == "parent_id" && delta && f.Type.ID() == arrow.UINT32:
			cols[i] = deltaDecodeUint32(mem, col.(*array.Uint32))
			newFields[i] = f
		default:
			col.Retain()
			cols[i] = col
			newFields[i] = f
		}
	}

	schema := arrow.NewSchema(newFields, nil)
	out := array.NewRecord(schema, cols, rec.NumRows())
	for _, c := range cols {
		c.Release()
	}
	return out
}

func metadataFrom(m map[string]string) *arrow.Metadata {
	keys := make([]string, 0, len(m))
	vals := make([]string, 0, len(m))
	for k, v := range m {
		keys = append(keys, k)
		vals = append(vals, v)
	}
	md := arrow.NewMetadata(keys, vals)
	return &md
}

// shouldDictionaryEncode consults the per-node cardinality sketch
// (when metrics is non-nil) before committing to dictionary encoding:
// a column whose distinct-value estimate already sits near the Uint16
// index space is left plain rather than risking an overflow. Every
// value also feeds the sketch here, so the gauge stays current even
// for columns that end up skipped.
func shouldDictionaryEncode(metrics *telemetry.Set, payloadType ArrowPayloadType, column string, col *array.String) bool {
	if metrics == nil {
		return true
	}
	sketchName := payloadType.String() + "." + column
	for i := 0; i < col.Len(); i++ {
		if !col.IsNull(i) {
			metrics.ObserveKey(sketchName, col.Value(i))
		}
	}
	estimate := metrics.CardinalitySketch(sketchName).Estimate()
	metrics.Set("dictionary_cardinality_"+sketchName, int64(estimate))
	if estimate > dictionaryOverflowGuard {
		metrics.Inc("dictionary_overflow_skipped_total", 1)
		return false
	}
	return true
}

// dictionaryEncodeColumn builds a Uint16-indexed dictionary array from
// col. ok is false if the actual distinct count exceeded the index
// space despite shouldDictionaryEncode's estimate (HyperLogLog is
// approximate) — the caller falls back to the plain column.
func dictionaryEncodeColumn(mem memory.Allocator, col *array.String) (out arrow.Array, ok bool) {
	dictType := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Uint16, ValueType: arrow.BinaryTypes.String}
	b := array.NewBuilder(mem, dictType).(*array.BinaryDictionaryBuilder)
	defer b.Release()
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			b.AppendNull()
			continue
		}
		if err := b.AppendString(col.Value(i)); err != nil {
			return nil, false
		}
	}
	return b.NewArray(), true
}

func dictionaryDecodeColumn(mem memory.Allocator, col *array.Dictionary) arrow.Array {
	values := col.Dictionary().(*array.String)
	b := array.NewBuilder(mem, arrow.BinaryTypes.String).(*array.StringBuilder)
	defer b.Release()
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(values.Value(col.GetValueIndex(i)))
	}
	return b.NewArray()
}

func deltaEncodeUint32(mem memory.Allocator, col *array.Uint32) arrow.Array {
	b := array.NewBuilder(mem, arrow.PrimitiveTypes.Uint32).(*array.Uint32Builder)
	defer b.Release()
	var prev uint32
	for i := 0; i < col.Len(); i++ {
		v := col.Value(i)
		if i == 0 {
			b.Append(v)
		} else {
			b.Append(v - prev)
		}
		prev = v
	}
	return b.NewArray()
}

func deltaDecodeUint32(mem memory.Allocator, col *array.Uint32) arrow.Array {
	b := array.NewBuilder(mem, arrow.PrimitiveTypes.Uint32).(*array.Uint32Builder)
	defer b.Release()
	var acc uint32
	for i := 0; i < col.Len(); i++ {
		d := col.Value(i)
		if i == 0 {
			acc = d
		} else {
			acc += d
		}
		b.Append(acc)
	}
	return b.NewArray()
}
