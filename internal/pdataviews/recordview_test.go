/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package pdataviews

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
)

func plainStringRecord(t *testing.T, values ...string) arrow.Record {
	t.Helper()
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{{Name: "name", Type: arrow.BinaryTypes.String}}, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	sb := b.Field(0).(*array.StringBuilder)
	for _, v := range values {
		if v == "" {
			sb.AppendNull()
			continue
		}
		sb.Append(v)
	}
	return b.NewRecord()
}

func dictionaryStringRecord(t *testing.T, values ...string) arrow.Record {
	t.Helper()
	mem := memory.NewGoAllocator()
	dictType := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Uint16, ValueType: arrow.BinaryTypes.String}
	schema := arrow.NewSchema([]arrow.Field{{Name: "name", Type: dictType}}, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	db := b.Field(0).(*array.BinaryDictionaryBuilder)
	for _, v := range values {
		require.NoError(t, db.AppendString(v))
	}
	return b.NewRecord()
}

func TestRecordViewStringPlain(t *testing.T) {
	t.Parallel()
	rec := plainStringRecord(t, "alpha", "", "beta")
	defer rec.Release()

	v := NewRecordView(rec)
	require.True(t, v.HasColumn("name"))
	require.False(t, v.HasColumn("missing"))

	s, ok := v.String("name", 0)
	require.True(t, ok)
	require.Equal(t, "alpha", s)

	_, ok = v.String("name", 1)
	require.False(t, ok)

	s, ok = v.String("name", 2)
	require.True(t, ok)
	require.Equal(t, "beta", s)
}

func TestRecordViewStringDictionary(t *testing.T) {
	t.Parallel()
	rec := dictionaryStringRecord(t, "x", "y", "x")
	defer rec.Release()

	v := NewRecordView(rec)
	s0, ok := v.String("name", 0)
	require.True(t, ok)
	require.Equal(t, "x", s0)

	s2, ok := v.String("name", 2)
	require.True(t, ok)
	require.Equal(t, "x", s2)

	s1, ok := v.String("name", 1)
	require.True(t, ok)
	require.Equal(t, "y", s1)
}

func TestRecordViewTypedColumns(t *testing.T) {
	t.Parallel()
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "parent_id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "count", Type: arrow.PrimitiveTypes.Int64},
		{Name: "ratio", Type: arrow.PrimitiveTypes.Float64},
		{Name: "ok", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "span_id", Type: arrow.BinaryTypes.Binary},
	}, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.Uint32Builder).Append(42)
	b.Field(1).(*array.Int64Builder).Append(-7)
	b.Field(2).(*array.Float64Builder).Append(0.5)
	b.Field(3).(*array.BooleanBuilder).Append(true)
	b.Field(4).(*array.BinaryBuilder).Append([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	rec := b.NewRecord()
	defer rec.Release()

	v := NewRecordView(rec)
	pid, ok := v.Uint32("parent_id", 0)
	require.True(t, ok)
	require.Equal(t, uint32(42), pid)

	count, ok := v.Int64("count", 0)
	require.True(t, ok)
	require.Equal(t, int64(-7), count)

	ratio, ok := v.Float64("ratio", 0)
	require.True(t, ok)
	require.InDelta(t, 0.5, ratio, 1e-9)

	flag, ok := v.Bool("ok", 0)
	require.True(t, ok)
	require.True(t, flag)

	sid, ok := v.SpanID("span_id", 0)
	require.True(t, ok)
	require.Equal(t, [8]byte{1, 2, 3, 4, 5, 6, 7, 8}, sid)

	_, ok = v.TraceID("span_id", 0)
	require.False(t, ok) // wrong width
}
