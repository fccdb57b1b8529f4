/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/plog/plogotlp"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/pkg/werror"
)

func logFields() []arrow.Field {
	return []arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "resource_id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "scope_id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "time_unix_nano", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "observed_time_unix_nano", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "severity_number", Type: arrow.PrimitiveTypes.Int64},
		{Name: "severity_text", Type: arrow.BinaryTypes.String},
		{Name: "body_type", Type: arrow.PrimitiveTypes.Uint8},
		{Name: "body_str", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "trace_id", Type: arrow.BinaryTypes.Binary},
		{Name: "span_id", Type: arrow.BinaryTypes.Binary},
		{Name: "flags", Type: arrow.PrimitiveTypes.Uint32},
	}
}

func logsToOtap(ld plog.Logs, mem memory.Allocator) (*OtapArrowRecords, error) {
	out := NewOtapArrowRecords(graph.SignalOtapLogs)

	resAttrs := newRowBuilder(mem, attrFields("id"))
	scopeAttrs := newRowBuilder(mem, attrFields("parent_id"))
	logs := newRowBuilder(mem, logFields())
	logAttrs := newRowBuilder(mem, attrFields("parent_id"))

	resAlloc := newIDAllocator()
	scopeAlloc := newIDAllocator()
	var logID uint32

	rls := ld.ResourceLogs()
	for i := 0; i < rls.Len(); i++ {
		rl := rls.At(i)
		res := rl.Resource()
		rID, isNew := resAlloc.idFor(resourceSig(rl.SchemaUrl(), res.Attributes()))
		if isNew {
			appendAttrs(resAttrs, "id", rID, res.Attributes())
		}

		sls := rl.ScopeLogs()
		for j := 0; j < sls.Len(); j++ {
			sl := sls.At(j)
			scope := sl.Scope()
			sID, isNewScope := scopeAlloc.idFor(scopeSig(rID, sl.SchemaUrl(), scope.Name(), scope.Version(), scope.Attributes()))
			if isNewScope {
				appendScopeAttrRows(scopeAttrs, sID, scope.Attributes())
			}

			records := sl.LogRecords()
			for k := 0; k < records.Len(); k++ {
				lr := records.At(k)
				id := logID
				logID++

				tid := lr.TraceID()
				spid := lr.SpanID()

				logs.u32("id", id)
				logs.u32("resource_id", rID)
				logs.u32("scope_id", sID)
				logs.u64("time_unix_nano", uint64(lr.Timestamp()))
				logs.u64("observed_time_unix_nano", uint64(lr.ObservedTimestamp()))
				logs.i64("severity_number", int64(lr.SeverityNumber()))
				logs.str("severity_text", lr.SeverityText())
				logs.u8("body_type", uint8(lr.Body().Type()))
				if lr.Body().Type() == pcommon.ValueTypeStr {
					logs.str("body_str", lr.Body().Str())
				} else {
					logs.strNull("body_str")
				}
				logs.bytes("trace_id", tid[:])
				logs.bytes("span_id", spid[:])
				logs.u32("flags", uint32(lr.Flags()))

				appendAttrs(logAttrs, "parent_id", id, lr.Attributes())
			}
		}
	}

	out.set(ResourceAttrs, resAttrs.finish())
	out.set(ScopeAttrs, scopeAttrs.finish())
	out.set(Logs, logs.finish())
	out.set(LogAttrs, logAttrs.finish())
	return out, nil
}

func otapToLogs(o *OtapArrowRecords) (plog.Logs, error) {
	ld := plog.NewLogs()

	logsBatch, ok := o.Get(Logs)
	if !ok {
		return ld, nil
	}
	rec := logsBatch.Record

	resAttrRows := groupAttrRows(o, ResourceAttrs, "id")
	scopeAttrRows := groupAttrRows(o, ScopeAttrs, "parent_id")
	logAttrRows := groupAttrRows(o, LogAttrs, "parent_id")

	resourceLogsByID := make(map[uint32]plog.ResourceLogs)
	scopeLogsByID := make(map[uint32]plog.ScopeLogs)

	n := int(rec.NumRows())
	for row := 0; row < n; row++ {
		rID := columnU32(rec, "resource_id", row)
		sID := columnU32(rec, "scope_id", row)

		rl, ok := resourceLogsByID[rID]
		if !ok {
			rl = ld.ResourceLogs().AppendEmpty()
			for _, ar := range resAttrRows[rID] {
				writeAttrInto(rl.Resource().Attributes(), ar)
			}
			resourceLogsByID[rID] = rl
		}

		sl, ok := scopeLogsByID[sID]
		if !ok {
			sl = rl.ScopeLogs().AppendEmpty()
			for _, ar := range scopeAttrRows[sID] {
				writeAttrInto(sl.Scope().Attributes(), ar)
			}
			scopeLogsByID[sID] = sl
		}

		lr := sl.LogRecords().AppendEmpty()
		lr.SetTimestamp(pcommon.Timestamp(columnU64(rec, "time_unix_nano", row)))
		lr.SetObservedTimestamp(pcommon.Timestamp(columnU64(rec, "observed_time_unix_nano", row)))
		lr.SetSeverityNumber(plog.SeverityNumber(columnI64(rec, "severity_number", row)))
		lr.SetSeverityText(columnStr(rec, "severity_text", row))
		if columnU8(rec, "body_type", row) == uint8(pcommon.ValueTypeStr) {
			lr.Body().SetStr(columnStr(rec, "body_str", row))
		}
		lr.SetTraceID(pcommon.TraceID(columnBytes16(rec, "trace_id", row)))
		lr.SetSpanID(pcommon.SpanID(columnBytes8(rec, "span_id", row)))
		lr.SetFlags(plog.LogRecordFlags(columnU32(rec, "flags", row)))

		id := columnU32(rec, "id", row)
		for _, ar := range logAttrRows[id] {
			writeAttrInto(lr.Attributes(), ar)
		}
	}

	return ld, nil
}

// FromOTLPLogBytes parses an OTLP ExportLogsServiceRequest payload.
func FromOTLPLogBytes(data []byte, mem memory.Allocator) (*OtapArrowRecords, error) {
	req := plogotlp.NewExportRequest()
	if err := req.UnmarshalProto(data); err != nil {
		return nil, werror.Wrap(err)
	}
	return logsToOtap(req.Logs(), mem)
}

// ToOTLPLogBytes reassembles an OTAP logs bundle into an OTLP
// ExportLogsServiceRequest payload.
func ToOTLPLogBytes(o *OtapArrowRecords) ([]byte, error) {
	ld, err := otapToLogs(o)
	if err != nil {
		return nil, werror.Wrap(err)
	}
	req := plogotlp.NewExportRequestFromLogs(ld)
	data, err := req.MarshalProto()
	if err != nil {
		return nil, werror.Wrap(err)
	}
	return data, nil
}
