/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// takeRows builds a new record holding only the given row indices of
// rec, in order. Used by SplitIntoBatches to project every payload
// batch down to the rows belonging to one chunk.
func takeRows(mem memory.Allocator, rec arrow.Record, rows []int) arrow.Record {
	fields := rec.Schema().Fields()
	rb := newRowBuilder(mem, fields)
	for _, row := range rows {
		for _, f := range fields {
			copyCell(rb, rec, f.Name, row)
		}
	}
	return rb.finish()
}

// copyCell appends rec's value of column name at row into rb's column
// of the same name, preserving nullability.
func copyCell(rb *rowBuilder, rec arrow.Record, name string, row int) {
	idx := colIndex(rec, name)
	col := rec.Column(idx)
	switch b := col.(type) {
	case *array.Uint32:
		rb.u32(name, b.Value(row))
	case *array.Uint64:
		rb.u64(name, b.Value(row))
	case *array.Uint8:
		rb.u8(name, b.Value(row))
	case *array.Int64:
		if col.IsNull(row) {
			rb.i64Null(name)
		} else {
			rb.i64(name, b.Value(row))
		}
	case *array.Float64:
		if col.IsNull(row) {
			rb.f64Null(name)
		} else {
			rb.f64(name, b.Value(row))
		}
	case *array.Boolean:
		if col.IsNull(row) {
			rb.boolNull(name)
		} else {
			rb.bool(name, b.Value(row))
		}
	case *array.String:
		if col.IsNull(row) {
			rb.strNull(name)
		} else {
			rb.str(name, b.Value(row))
		}
	case *array.Binary:
		if col.IsNull(row) {
			rb.bytesNull(name)
		} else {
			rb.bytes(name, b.Value(row))
		}
	}
}

// rowsWhereIn returns the indices of rec's rows whose col value is a
// member of allowed.
func rowsWhereIn(rec arrow.Record, col string, allowed map[uint32]bool) []int {
	n := int(rec.NumRows())
	out := make([]int, 0, n)
	for row := 0; row < n; row++ {
		if allowed[columnU32(rec, col, row)] {
			out = append(out, row)
		}
	}
	return out
}

// idSet collects the distinct values of rec's col column.
func idSet(rec arrow.Record, col string) map[uint32]bool {
	n := int(rec.NumRows())
	out := make(map[uint32]bool, n)
	for row := 0; row < n; row++ {
		out[columnU32(rec, col, row)] = true
	}
	return out
}
