/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.opentelemetry.io/collector/pdata/pcommon"
)

// rowBuilder accumulates rows into a fixed set of typed columns and
// finishes them into a single arrow.Record. It is the direct
// replacement for the teacher's generic per-column accumulator
// framework (see DESIGN.md "Simplifications"): one rowBuilder per
// payload type, columns declared up front from a schema.
type rowBuilder struct {
	mem      memory.Allocator
	schema   *arrow.Schema
	builders []array.Builder
	index    map[string]int
}

func newRowBuilder(mem memory.Allocator, fields []arrow.Field) *rowBuilder {
	builders := make([]array.Builder, len(fields))
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		builders[i] = array.NewBuilder(mem, f.Type)
		index[f.Name] = i
	}
	return &rowBuilder{
		mem:      mem,
		schema:   arrow.NewSchema(fields, nil),
		builders: builders,
		index:    index,
	}
}

func (b *rowBuilder) u32(name string, v uint32) {
	b.builders[b.index[name]].(*array.Uint32Builder).Append(v)
}

func (b *rowBuilder) i64(name string, v int64) {
	b.builders[b.index[name]].(*array.Int64Builder).Append(v)
}

func (b *rowBuilder) f64(name string, v float64) {
	b.builders[b.index[name]].(*array.Float64Builder).Append(v)
}

func (b *rowBuilder) u64(name string, v uint64) {
	b.builders[b.index[name]].(*array.Uint64Builder).Append(v)
}

func (b *rowBuilder) u8(name string, v uint8) {
	b.builders[b.index[name]].(*array.Uint8Builder).Append(v)
}

func (b *rowBuilder) str(name string, v string) {
	b.builders[b.index[name]].(*array.StringBuilder).Append(v)
}

func (b *rowBuilder) strNull(name string) {
	b.builders[b.index[name]].AppendNull()
}

func (b *rowBuilder) i64Null(name string)   { b.builders[b.index[name]].AppendNull() }
func (b *rowBuilder) f64Null(name string)   { b.builders[b.index[name]].AppendNull() }
func (b *rowBuilder) boolNull(name string)  { b.builders[b.index[name]].AppendNull() }
func (b *rowBuilder) bytesNull(name string) { b.builders[b.index[name]].AppendNull() }

func (b *rowBuilder) bool(name string, v bool) {
	b.builders[b.index[name]].(*array.BooleanBuilder).Append(v)
}

func (b *rowBuilder) bytes(name string, v []byte) {
	b.builders[b.index[name]].(*array.BinaryBuilder).Append(v)
}

func (b *rowBuilder) has(name string) bool {
	_, ok := b.index[name]
	return ok
}

func (b *rowBuilder) numRows() int {
	if len(b.builders) == 0 {
		return 0
	}
	return b.builders[0].Len()
}

func (b *rowBuilder) finish() arrow.Record {
	n := b.numRows()
	cols := make([]arrow.Array, len(b.builders))
	for i, bd := range b.builders {
		cols[i] = bd.NewArray()
	}
	rec := array.NewRecord(b.schema, cols, int64(n))
	for _, c := range cols {
		c.Release()
	}
	return rec
}

// attrFields is the fixed schema shared by every attribute-store
// payload type: a foreign key into the owning row, a key, and a
// type-discriminated, sparsely-populated value.
func attrFields(parentCol string) []arrow.Field {
	return []arrow.Field{
		{Name: parentCol, Type: arrow.PrimitiveTypes.Uint32},
		{Name: "key", Type: arrow.BinaryTypes.String},
		{Name: "value_type", Type: arrow.PrimitiveTypes.Uint8},
		{Name: "str", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "int", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "double", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "bool", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		{Name: "bytes", Type: arrow.BinaryTypes.Binary, Nullable: true},
	}
}

// appendAttr appends one (parentID, key, value) row to an attribute
// rowBuilder built from attrFields.
func appendAttr(b *rowBuilder, parentCol string, parentID uint32, key string, v pcommon.Value) {
	b.u32(parentCol, parentID)
	b.str("key", key)
	b.u8("value_type", uint8(v.Type()))

	if v.Type() == pcommon.ValueTypeStr {
		b.str("str", v.Str())
	} else {
		b.strNull("str")
	}
	if v.Type() == pcommon.ValueTypeInt {
		b.i64("int", v.Int())
	} else {
		b.i64Null("int")
	}
	if v.Type() == pcommon.ValueTypeDouble {
		b.f64("double", v.Double())
	} else {
		b.f64Null("double")
	}
	if v.Type() == pcommon.ValueTypeBool {
		b.bool("bool", v.Bool())
	} else {
		b.boolNull("bool")
	}
	if v.Type() == pcommon.ValueTypeBytes {
		b.bytes("bytes", v.Bytes().AsRaw())
	} else {
		b.bytesNull("bytes")
	}
}

// appendAttrs appends every entry of attrs as its own row.
func appendAttrs(b *rowBuilder, parentCol string, parentID uint32, attrs pcommon.Map) {
	attrs.Range(func(k string, v pcommon.Value) bool {
		appendAttr(b, parentCol, parentID, k, v)
		return true
	})
}

// readAttrValue reconstructs the pcommon.Value a row of an attribute
// batch encodes, writing it into dst.
func readAttrValue(rec arrow.Record, row int, dst pcommon.Value) {
	vt := pcommon.ValueType(columnU8(rec, "value_type", row))
	switch vt {
	case pcommon.ValueTypeStr:
		dst.SetStr(columnStr(rec, "str", row))
	case pcommon.ValueTypeInt:
		dst.SetInt(columnI64(rec, "int", row))
	case pcommon.ValueTypeDouble:
		dst.SetDouble(columnF64(rec, "double", row))
	case pcommon.ValueTypeBool:
		dst.SetBool(columnBool(rec, "bool", row))
	case pcommon.ValueTypeBytes:
		dst.SetEmptyBytes().FromRaw(columnBytes(rec, "bytes", row))
	}
}

func colIndex(rec arrow.Record, name string) int {
	for i, f := range rec.Schema().Fields() {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func columnU32(rec arrow.Record, name string, row int) uint32 {
	i := colIndex(rec, name)
	return rec.Column(i).(*array.Uint32).Value(row)
}

func columnU8(rec arrow.Record, name string, row int) uint8 {
	i := colIndex(rec, name)
	return rec.Column(i).(*array.Uint8).Value(row)
}

func columnStr(rec arrow.Record, name string, row int) string {
	i := colIndex(rec, name)
	col := rec.Column(i)
	if col.IsNull(row) {
		return ""
	}
	return col.(*array.String).Value(row)
}

func columnI64(rec arrow.Record, name string, row int) int64 {
	i := colIndex(rec, name)
	col := rec.Column(i)
	if col.IsNull(row) {
		return 0
	}
	return col.(*array.Int64).Value(row)
}

func columnU64(rec arrow.Record, name string, row int) uint64 {
	i := colIndex(rec, name)
	return rec.Column(i).(*array.Uint64).Value(row)
}

func columnF64(rec arrow.Record, name string, row int) float64 {
	i := colIndex(rec, name)
	col := rec.Column(i)
	if col.IsNull(row) {
		return 0
	}
	return col.(*array.Float64).Value(row)
}

func columnBool(rec arrow.Record, name string, row int) bool {
	i := colIndex(rec, name)
	col := rec.Column(i)
	if col.IsNull(row) {
		return false
	}
	return col.(*array.Boolean).Value(row)
}

func columnBytes(rec arrow.Record, name string, row int) []byte {
	i := colIndex(rec, name)
	col := rec.Column(i)
	if col.IsNull(row) {
		return nil
	}
	return col.(*array.Binary).Value(row)
}
