/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package pdataviews

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// RecordView is a read-only, column-index-cached view over one Arrow
// record. Unlike the full decoders in internal/otap, it never builds a
// pcommon/otlp object graph; it exists for callers (debug tooling,
// future filter/query processors) that only need a handful of typed
// field reads per row and want to pay for column lookup once instead
// of once per row, the way internal/otap's columnXxx helpers do.
type RecordView struct {
	rec     arrow.Record
	colIdx  map[string]int
	strCols map[string]*stringColumn
}

// NewRecordView wraps rec. rec is not retained; the caller owns its
// lifetime for as long as the view is used.
func NewRecordView(rec arrow.Record) *RecordView {
	fields := rec.Schema().Fields()
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.Name] = i
	}
	return &RecordView{rec: rec, colIdx: idx, strCols: make(map[string]*stringColumn)}
}

// NumRows returns the record's row count.
func (v *RecordView) NumRows() int64 { return v.rec.NumRows() }

// HasColumn reports whether name exists in this record's schema.
func (v *RecordView) HasColumn(name string) bool {
	_, ok := v.colIdx[name]
	return ok
}

// stringColumn resolves a possibly-dictionary-encoded string column
// once, so String reads don't re-check the column's type on every row.
type stringColumn struct {
	direct *array.String
	dict   *array.Dictionary
	values *array.String // dict.Dictionary(), pre-cast
}

func (v *RecordView) stringColumnFor(name string) (*stringColumn, bool) {
	if sc, ok := v.strCols[name]; ok {
		return sc, true
	}
	i, ok := v.colIdx[name]
	if !ok {
		return nil, false
	}
	col := v.rec.Column(i)
	sc := &stringColumn{}
	switch c := col.(type) {
	case *array.String:
		sc.direct = c
	case *array.Dictionary:
		values, ok := c.Dictionary().(*array.String)
		if !ok {
			return nil, false
		}
		sc.dict = c
		sc.values = values
	default:
		return nil, false
	}
	v.strCols[name] = sc
	return sc, true
}

// String reads the named column at row as a string, transparently
// dereferencing a dictionary-encoded column. ok is false if the column
// is absent, not string-typed, or null at row.
func (v *RecordView) String(name string, row int) (s string, ok bool) {
	sc, found := v.stringColumnFor(name)
	if !found {
		return "", false
	}
	if sc.direct != nil {
		if sc.direct.IsNull(row) {
			return "", false
		}
		return sc.direct.Value(row), true
	}
	if sc.dict.IsNull(row) {
		return "", false
	}
	return sc.values.Value(sc.dict.GetValueIndex(row)), true
}

// Uint32 reads the named uint32 column at row.
func (v *RecordView) Uint32(name string, row int) (uint32, bool) {
	i, ok := v.colIdx[name]
	if !ok {
		return 0, false
	}
	col, ok := v.rec.Column(i).(*array.Uint32)
	if !ok || col.IsNull(row) {
		return 0, false
	}
	return col.Value(row), true
}

// Uint64 reads the named uint64 column at row.
func (v *RecordView) Uint64(name string, row int) (uint64, bool) {
	i, ok := v.colIdx[name]
	if !ok {
		return 0, false
	}
	col, ok := v.rec.Column(i).(*array.Uint64)
	if !ok || col.IsNull(row) {
		return 0, false
	}
	return col.Value(row), true
}

// Int64 reads the named int64 column at row.
func (v *RecordView) Int64(name string, row int) (int64, bool) {
	i, ok := v.colIdx[name]
	if !ok {
		return 0, false
	}
	col, ok := v.rec.Column(i).(*array.Int64)
	if !ok || col.IsNull(row) {
		return 0, false
	}
	return col.Value(row), true
}

// Float64 reads the named float64 column at row.
func (v *RecordView) Float64(name string, row int) (float64, bool) {
	i, ok := v.colIdx[name]
	if !ok {
		return 0, false
	}
	col, ok := v.rec.Column(i).(*array.Float64)
	if !ok || col.IsNull(row) {
		return 0, false
	}
	return col.Value(row), true
}

// Bool reads the named bool column at row.
func (v *RecordView) Bool(name string, row int) (bool, bool) {
	i, ok := v.colIdx[name]
	if !ok {
		return false, false
	}
	col, ok := v.rec.Column(i).(*array.Boolean)
	if !ok || col.IsNull(row) {
		return false, false
	}
	return col.Value(row), true
}

// Bytes reads the named binary column at row.
func (v *RecordView) Bytes(name string, row int) ([]byte, bool) {
	i, ok := v.colIdx[name]
	if !ok {
		return nil, false
	}
	col, ok := v.rec.Column(i).(*array.Binary)
	if !ok || col.IsNull(row) {
		return nil, false
	}
	return col.Value(row), true
}

// TraceID reads a 16-byte fixed-width binary column (trace/span id
// columns are always this width; see internal/otap/decode_helpers.go's
// columnBytes16 for the equivalent used by the full decoder).
func (v *RecordView) TraceID(name string, row int) (id [16]byte, ok bool) {
	b, found := v.Bytes(name, row)
	if !found || len(b) != 16 {
		return id, false
	}
	copy(id[:], b)
	return id, true
}

// SpanID reads an 8-byte fixed-width binary column.
func (v *RecordView) SpanID(name string, row int) (id [8]byte, ok bool) {
	b, found := v.Bytes(name, row)
	if !found || len(b) != 8 {
		return id, false
	}
	copy(id[:], b)
	return id, true
}
