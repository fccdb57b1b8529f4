/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/pmetric/pmetricotlp"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/pkg/werror"
)

// metricFields describes the Metrics batch. Only the metric's own
// identity and descriptive fields live here; its data points live in
// NumberDP (see the note on unsupported metric types below).
func metricFields() []arrow.Field {
	return []arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "resource_id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "scope_id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "description", Type: arrow.BinaryTypes.String},
		{Name: "unit", Type: arrow.BinaryTypes.String},
		{Name: "type", Type: arrow.PrimitiveTypes.Uint8},
		{Name: "is_monotonic", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "aggregation_temporality", Type: arrow.PrimitiveTypes.Int64},
	}
}

func numberDPFields() []arrow.Field {
	return []arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "parent_id", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "start_time_unix_nano", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "time_unix_nano", Type: arrow.PrimitiveTypes.Uint64},
		{Name: "value_type", Type: arrow.PrimitiveTypes.Uint8},
		{Name: "value_double", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "value_int", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "flags", Type: arrow.PrimitiveTypes.Uint32},
	}
}

// metricsToOtap converts Gauge and Sum metrics to OTAP record
// batches. Histogram, ExponentialHistogram, and Summary metrics are
// skipped (documented in DESIGN.md as an out-of-budget simplification
// of the teacher's payload-type catalogue); they are counted so
// callers can report a Decode-kind drop rather than silently losing
// rows.
func metricsToOtap(md pmetric.Metrics, mem memory.Allocator) (*OtapArrowRecords, int, error) {
	out := NewOtapArrowRecords(graph.SignalOtapMetrics)

	resAttrs := newRowBuilder(mem, attrFields("id"))
	scopeAttrs := newRowBuilder(mem, attrFields("parent_id"))
	metrics := newRowBuilder(mem, metricFields())
	numberDP := newRowBuilder(mem, numberDPFields())
	numberDPAttrs := newRowBuilder(mem, attrFields("parent_id"))

	resAlloc := newIDAllocator()
	scopeAlloc := newIDAllocator()
	var metricID uint32
	var dpID uint32
	skipped := 0

	rms := md.ResourceMetrics()
	for i := 0; i < rms.Len(); i++ {
		rm := rms.At(i)
		res := rm.Resource()
		rID, isNew := resAlloc.idFor(resourceSig(rm.SchemaUrl(), res.Attributes()))
		if isNew {
			appendAttrs(resAttrs, "id", rID, res.Attributes())
		}

		sms := rm.ScopeMetrics()
		for j := 0; j < sms.Len(); j++ {
			sm := sms.At(j)
			scope := sm.Scope()
			sID, isNewScope := scopeAlloc.idFor(scopeSig(rID, sm.SchemaUrl(), scope.Name(), scope.Version(), scope.Attributes()))
			if isNewScope {
				appendScopeAttrRows(scopeAttrs, sID, scope.Attributes())
			}

			ms := sm.Metrics()
			for k := 0; k < ms.Len(); k++ {
				m := ms.At(k)

				var points pmetric.NumberDataPointSlice
				var monotonic bool
				var temporality pmetric.AggregationTemporality
				switch m.Type() {
				case pmetric.MetricTypeGauge:
					points = m.Gauge().DataPoints()
				case pmetric.MetricTypeSum:
					points = m.Sum().DataPoints()
					monotonic = m.Sum().IsMonotonic()
					temporality = m.Sum().AggregationTemporality()
				default:
					skipped++
					continue
				}

				id := metricID
				metricID++
				metrics.u32("id", id)
				metrics.u32("resource_id", rID)
				metrics.u32("scope_id", sID)
				metrics.str("name", m.Name())
				metrics.str("description", m.Description())
				metrics.str("unit", m.Unit())
				metrics.u8("type", uint8(m.Type()))
				metrics.bool("is_monotonic", monotonic)
				metrics.i64("aggregation_temporality", int64(temporality))

				for p := 0; p < points.Len(); p++ {
					dp := points.At(p)
					pID := dpID
					dpID++

					numberDP.u32("id", pID)
					numberDP.u32("parent_id", id)
					numberDP.u64("start_time_unix_nano", uint64(dp.StartTimestamp()))
					numberDP.u64("time_unix_nano", uint64(dp.Timestamp()))
					numberDP.u8("value_type", uint8(dp.ValueType()))
					if dp.ValueType() == pmetric.NumberDataPointValueTypeDouble {
						numberDP.f64("value_double", dp.DoubleValue())
					} else {
						numberDP.f64Null("value_double")
					}
					if dp.ValueType() == pmetric.NumberDataPointValueTypeInt {
						numberDP.i64("value_int", dp.IntValue())
					} else {
						numberDP.i64Null("value_int")
					}
					numberDP.u32("flags", uint32(dp.Flags()))

					appendAttrs(numberDPAttrs, "parent_id", pID, dp.Attributes())
				}
			}
		}
	}

	out.set(ResourceMetricsAttrs, resAttrs.finish())
	out.set(ScopeMetricsAttrs, scopeAttrs.finish())
	out.set(Metrics, metrics.finish())
	out.set(NumberDP, numberDP.finish())
	out.set(NumberDPAttrs, numberDPAttrs.finish())
	return out, skipped, nil
}

func otapToMetrics(o *OtapArrowRecords) (pmetric.Metrics, error) {
	md := pmetric.NewMetrics()

	metricsBatch, ok := o.Get(Metrics)
	if !ok {
		return md, nil
	}
	rec := metricsBatch.Record

	resAttrRows := groupAttrRows(o, ResourceMetricsAttrs, "id")
	scopeAttrRows := groupAttrRows(o, ScopeMetricsAttrs, "parent_id")
	dpRows := groupChildRows(o, NumberDP, "parent_id")
	dpAttrRows := groupAttrRows(o, NumberDPAttrs, "parent_id")

	resourceMetricsByID := make(map[uint32]pmetric.ResourceMetrics)
	scopeMetricsByID := make(map[uint32]pmetric.ScopeMetrics)

	n := int(rec.NumRows())
	for row := 0; row < n; row++ {
		rID := columnU32(rec, "resource_id", row)
		sID := columnU32(rec, "scope_id", row)

		rm, ok := resourceMetricsByID[rID]
		if !ok {
			rm = md.ResourceMetrics().AppendEmpty()
			for _, ar := range resAttrRows[rID] {
				writeAttrInto(rm.Resource().Attributes(), ar)
			}
			resourceMetricsByID[rID] = rm
		}

		sm, ok := scopeMetricsByID[sID]
		if !ok {
			sm = rm.ScopeMetrics().AppendEmpty()
			for _, ar := range scopeAttrRows[sID] {
				writeAttrInto(sm.Scope().Attributes(), ar)
			}
			scopeMetricsByID[sID] = sm
		}

		m := sm.Metrics().AppendEmpty()
		m.SetName(columnStr(rec, "name", row))
		m.SetDescription(columnStr(rec, "description", row))
		m.SetUnit(columnStr(rec, "unit", row))

		id := columnU32(rec, "id", row)
		mtype := pmetric.MetricType(columnU8(rec, "type", row))

		var points pmetric.NumberDataPointSlice
		switch mtype {
		case pmetric.MetricTypeSum:
			sum := m.SetEmptySum()
			sum.SetIsMonotonic(columnBool(rec, "is_monotonic", row))
			sum.SetAggregationTemporality(pmetric.AggregationTemporality(columnI64(rec, "aggregation_temporality", row)))
			points = sum.DataPoints()
		default:
			points = m.SetEmptyGauge().DataPoints()
		}

		for _, dpRow := range dpRows[id] {
			dRec, dRowIdx := dpRow.rec, dpRow.row
			dp := points.AppendEmpty()
			dp.SetStartTimestamp(pcommon.Timestamp(columnU64(dRec, "start_time_unix_nano", dRowIdx)))
			dp.SetTimestamp(pcommon.Timestamp(columnU64(dRec, "time_unix_nano", dRowIdx)))
			if pmetric.NumberDataPointValueType(columnU8(dRec, "value_type", dRowIdx)) == pmetric.NumberDataPointValueTypeInt {
				dp.SetIntValue(columnI64(dRec, "value_int", dRowIdx))
			} else {
				dp.SetDoubleValue(columnF64(dRec, "value_double", dRowIdx))
			}
			dp.SetFlags(pmetric.DataPointFlags(columnU32(dRec, "flags", dRowIdx)))

			dpID := columnU32(dRec, "id", dRowIdx)
			for _, ar := range dpAttrRows[dpID] {
				writeAttrInto(dp.Attributes(), ar)
			}
		}
	}

	return md, nil
}

// FromOTLPMetricBytes parses an OTLP ExportMetricsServiceRequest
// payload. The returned int is the number of metrics dropped because
// their type isn't Gauge or Sum.
func FromOTLPMetricBytes(data []byte, mem memory.Allocator) (*OtapArrowRecords, int, error) {
	req := pmetricotlp.NewExportRequest()
	if err := req.UnmarshalProto(data); err != nil {
		return nil, 0, werror.Wrap(err)
	}
	return metricsToOtap(req.Metrics(), mem)
}

// ToOTLPMetricBytes reassembles an OTAP metrics bundle into an OTLP
// ExportMetricsServiceRequest payload.
func ToOTLPMetricBytes(o *OtapArrowRecords) ([]byte, error) {
	md, err := otapToMetrics(o)
	if err != nil {
		return nil, werror.Wrap(err)
	}
	req := pmetricotlp.NewExportRequestFromMetrics(md)
	data, err := req.MarshalProto()
	if err != nil {
		return nil, werror.Wrap(err)
	}
	return data, nil
}
