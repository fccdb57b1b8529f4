/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/ptrace"
	"go.opentelemetry.io/collector/pdata/ptrace/ptraceotlp"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/pkg/werror"
)

func spanFields() []arrow.Field {
	return []arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "resource_id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "scope_id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "trace_id", Type: arrow.BinaryTypes.Binary},
		{Name: "span_id", Type: arrow.BinaryTypes.Binary},
		{Name: "parent_span_id", Type: arrow.BinaryTypes.Binary},
		{Name: "trace_state", Type: arrow.BinaryTypes.String},
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "kind", Type: arrow.PrimitiveTypes.Int64},
		{Name: "start_time_unix_nano", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "end_time_unix_nano", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "status_code", Type: arrow.PrimitiveTypes.Int64},
		{Name: "status_message", Type: arrow.BinaryTypes.String},
	}
}

func spanEventFields() []arrow.Field {
	return []arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "parent_id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "time_unix_nano", Type: arrow.PrimitiveTypes.Uint64},
	}
}

func spanLinkFields() []arrow.Field {
	return []arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "parent_id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "trace_id", Type: arrow.BinaryTypes.Binary},
		{Name: "span_id", Type: arrow.BinaryTypes.Binary},
		{Name: "trace_state", Type: arrow.BinaryTypes.String},
	}
}

// tracesToOtap builds an OTAP bundle from decoded OTLP traces.
func tracesToOtap(td ptrace.Traces, mem memory.Allocator) (*OtapArrowRecords, error) {
	out := NewOtapArrowRecords(graph.SignalOtapTraces)

	resAttrs := newRowBuilder(mem, attrFields("id"))
	scopeAttrs := newRowBuilder(mem, attrFields("parent_id"))
	spans := newRowBuilder(mem, spanFields())
	spanAttrs := newRowBuilder(mem, attrFields("parent_id"))
	events := newRowBuilder(mem, spanEventFields())
	eventAttrs := newRowBuilder(mem, attrFields("parent_id"))
	links := newRowBuilder(mem, spanLinkFields())
	linkAttrs := newRowBuilder(mem, attrFields("parent_id"))

	resAlloc := newIDAllocator()
	scopeAlloc := newIDAllocator()
	var spanID uint32
	var eventID uint32
	var linkID uint32

	rss := td.ResourceSpans()
	for i := 0; i < rss.Len(); i++ {
		rs := rss.At(i)
		res := rs.Resource()
		rID, isNew := resAlloc.idFor(resourceSig(rs.SchemaUrl(), res.Attributes()))
		if isNew {
			appendAttrs(resAttrs, "id", rID, res.Attributes())
		}

		sss := rs.ScopeSpans()
		for j := 0; j < sss.Len(); j++ {
			ss := sss.At(j)
			scope := ss.Scope()
			sID, isNewScope := scopeAlloc.idFor(scopeSig(rID, ss.SchemaUrl(), scope.Name(), scope.Version(), scope.Attributes()))
			if isNewScope {
				appendScopeAttrRows(scopeAttrs, sID, scope.Attributes())
			}

			spanSlice := ss.Spans()
			for k := 0; k < spanSlice.Len(); k++ {
				sp := spanSlice.At(k)
				id := spanID
				spanID++

				tid := sp.TraceID()
				spid := sp.SpanID()
				psid := sp.ParentSpanID()

				spans.u32("id", id)
				spans.u32("resource_id", rID)
				spans.u32("scope_id", sID)
				spans.bytes("trace_id", tid[:])
				spans.bytes("span_id", spid[:])
				spans.bytes("parent_span_id", psid[:])
				spans.str("trace_state", sp.TraceState().AsRaw())
				spans.str("name", sp.Name())
				spans.i64("kind", int64(sp.Kind()))
				spans.u64("start_time_unix_nano", uint64(sp.StartTimestamp()))
				spans.u64("end_time_unix_nano", uint64(sp.EndTimestamp()))
				spans.i64("status_code", int64(sp.Status().Code()))
				spans.str("status_message", sp.Status().Message())

				appendAttrs(spanAttrs, "parent_id", id, sp.Attributes())

				evs := sp.Events()
				for e := 0; e < evs.Len(); e++ {
					ev := evs.At(e)
					eID := eventID
					eventID++
					events.u32("id", eID)
					events.u32("parent_id", id)
					events.str("name", ev.Name())
					events.u64("time_unix_nano", uint64(ev.Timestamp()))
					appendAttrs(eventAttrs, "parent_id", eID, ev.Attributes())
				}

				lks := sp.Links()
				for l := 0; l < lks.Len(); l++ {
					lk := lks.At(l)
					lID := linkID
					linkID++
					ltid := lk.TraceID()
					lspid := lk.SpanID()
					links.u32("id", lID)
					links.u32("parent_id", id)
					links.bytes("trace_id", ltid[:])
					links.bytes("span_id", lspid[:])
					links.str("trace_state", lk.TraceState().AsRaw())
					appendAttrs(linkAttrs, "parent_id", lID, lk.Attributes())
				}
			}
		}
	}

	out.set(ResourceAttrs, resAttrs.finish())
	out.set(ScopeAttrs, scopeAttrs.finish())
	out.set(Spans, spans.finish())
	out.set(SpanAttrs, spanAttrs.finish())
	out.set(SpanEvents, events.finish())
	out.set(SpanEventAttrs, eventAttrs.finish())
	out.set(SpanLinks, links.finish())
	out.set(SpanLinkAttrs, linkAttrs.finish())
	return out, nil
}

// appendScopeAttrRows appends one attrFields("parent_id") row per scope
// attribute, with parent_id set to the scope's id; a scope with no
// attributes gets no rows.
func appendScopeAttrRows(b *rowBuilder, scopeID uint32, attrs pcommon.Map) {
	if attrs.Len() == 0 {
		return
	}
	attrs.Range(func(k string, v pcommon.Value) bool {
		appendAttr(b, "parent_id", scopeID, k, v)
		return true
	})
}

// otapToTraces reconstructs ptrace.Traces from an OTAP bundle.
func otapToTraces(o *OtapArrowRecords) (ptrace.Traces, error) {
	td := ptrace.NewTraces()

	spansBatch, ok := o.Get(Spans)
	if !ok {
		return td, nil
	}
	rec := spansBatch.Record

	resAttrRows := groupAttrRows(o, ResourceAttrs, "id")
	scopeAttrRows := groupAttrRows(o, ScopeAttrs, "parent_id")
	spanAttrRows := groupAttrRows(o, SpanAttrs, "parent_id")
	eventRows := groupChildRows(o, SpanEvents, "parent_id")
	eventAttrRows := groupAttrRows(o, SpanEventAttrs, "parent_id")
	linkRows := groupChildRows(o, SpanLinks, "parent_id")
	linkAttrRows := groupAttrRows(o, SpanLinkAttrs, "parent_id")

	resourceSpansByID := make(map[uint32]ptrace.ResourceSpans)
	scopeSpansByID := make(map[uint32]ptrace.ScopeSpans)

	n := int(rec.NumRows())
	for row := 0; row < n; row++ {
		rID := columnU32(rec, "resource_id", row)
		sID := columnU32(rec, "scope_id", row)

		rs, ok := resourceSpansByID[rID]
		if !ok {
			rs = td.ResourceSpans().AppendEmpty()
			for _, ar := range resAttrRows[rID] {
				writeAttrInto(rs.Resource().Attributes(), ar)
			}
			resourceSpansByID[rID] = rs
		}

		ss, ok := scopeSpansByID[sID]
		if !ok {
			ss = rs.ScopeSpans().AppendEmpty()
			for _, ar := range scopeAttrRows[sID] {
				writeAttrInto(ss.Scope().Attributes(), ar)
			}
			scopeSpansByID[sID] = ss
		}

		sp := ss.Spans().AppendEmpty()
		sp.SetTraceID(pcommon.TraceID(columnBytes16(rec, "trace_id", row)))
		sp.SetSpanID(pcommon.SpanID(columnBytes8(rec, "span_id", row)))
		sp.SetParentSpanID(pcommon.SpanID(columnBytes8(rec, "parent_span_id", row)))
		sp.TraceState().FromRaw(columnStr(rec, "trace_state", row))
		sp.SetName(columnStr(rec, "name", row))
		sp.SetKind(ptrace.SpanKind(columnI64(rec, "kind", row)))
		sp.SetStartTimestamp(pcommon.Timestamp(columnU64(rec, "start_time_unix_nano", row)))
		sp.SetEndTimestamp(pcommon.Timestamp(columnU64(rec, "end_time_unix_nano", row)))
		sp.Status().SetCode(ptrace.StatusCode(columnI64(rec, "status_code", row)))
		sp.Status().SetMessage(columnStr(rec, "status_message", row))

		id := columnU32(rec, "id", row)
		for _, ar := range spanAttrRows[id] {
			writeAttrInto(sp.Attributes(), ar)
		}
		for _, evRow := range eventRows[id] {
			ev := sp.Events().AppendEmpty()
			evRec := evRow.rec
			ev.SetName(columnStr(evRec, "name", evRow.row))
			ev.SetTimestamp(pcommon.Timestamp(columnU64(evRec, "time_unix_nano", evRow.row)))
			evID := columnU32(evRec, "id", evRow.row)
			for _, ar := range eventAttrRows[evID] {
				writeAttrInto(ev.Attributes(), ar)
			}
		}
		for _, lkRow := range linkRows[id] {
			lk := sp.Links().AppendEmpty()
			lkRec := lkRow.rec
			lk.SetTraceID(pcommon.TraceID(columnBytes16(lkRec, "trace_id", lkRow.row)))
			lk.SetSpanID(pcommon.SpanID(columnBytes8(lkRec, "span_id", lkRow.row)))
			lk.TraceState().FromRaw(columnStr(lkRec, "trace_state", lkRow.row))
			lkID := columnU32(lkRec, "id", lkRow.row)
			for _, ar := range linkAttrRows[lkID] {
				writeAttrInto(lk.Attributes(), ar)
			}
		}
	}

	return td, nil
}

// FromOTLPTraceBytes parses an OTLP ExportTraceServiceRequest payload
// and converts it into an OTAP bundle.
func FromOTLPTraceBytes(data []byte, mem memory.Allocator) (*OtapArrowRecords, error) {
	req := ptraceotlp.NewExportRequest()
	if err := req.UnmarshalProto(data); err != nil {
		return nil, werror.Wrap(err)
	}
	return tracesToOtap(req.Traces(), mem)
}

// ToOTLPTraceBytes reassembles an OTAP traces bundle into an OTLP
// ExportTraceServiceRequest payload.
func ToOTLPTraceBytes(o *OtapArrowRecords) ([]byte, error) {
	td, err := otapToTraces(o)
	if err != nil {
		return nil, werror.Wrap(err)
	}
	req := ptraceotlp.NewExportRequestFromTraces(td)
	data, err := req.MarshalProto()
	if err != nil {
		return nil, werror.Wrap(err)
	}
	return data, nil
}
