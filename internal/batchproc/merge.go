/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package batchproc

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/plog/plogotlp"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/pmetric/pmetricotlp"
	"go.opentelemetry.io/collector/pdata/ptrace"
	"go.opentelemetry.io/collector/pdata/ptrace/ptraceotlp"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/otap"
	"github.com/otap-dataflow/dataflow-go/pkg/werror"
)

// mergeBatches combines several OTAP bundles of the same signal into
// one. OTAP's parent-id columns are local to a single batch (spec.md
// §3/§9: "arena-and-index semantics; never construct cross-batch
// references by pointer"), so naively concatenating the underlying
// Arrow records would collide ids between batches. Rather than
// hand-rolling an id-renumbering pass, this round-trips each batch
// through its already-proven OTLP encoding (§8's round-trip invariant
// guarantees losslessness), merges at the pdata level using the
// collector's own ResourceXxx.MoveAndAppendTo idiom, then re-decodes
// once — which gives the merged bundle a single, consistent id space
// for free.
func mergeBatches(sig graph.Signal, batches []*otap.OtapArrowRecords) (*otap.OtapArrowRecords, error) {
	mem := memory.NewGoAllocator()

	switch sig {
	case graph.SignalOtapLogs, graph.SignalLogs:
		merged := plog.NewLogs()
		for _, b := range batches {
			data, err := otap.ToOTLPBytes(b)
			if err != nil {
				return nil, err
			}
			req := plogotlp.NewExportRequest()
			if err := req.UnmarshalProto(data); err != nil {
				return nil, werror.Wrap(err)
			}
			req.Logs().ResourceLogs().MoveAndAppendTo(merged.ResourceLogs())
		}
		data, err := plogotlp.NewExportRequestFromLogs(merged).MarshalProto()
		if err != nil {
			return nil, werror.Wrap(err)
		}
		return otap.FromOTLPLogBytes(data, mem)

	case graph.SignalOtapTraces, graph.SignalTraces:
		merged := ptrace.NewTraces()
		for _, b := range batches {
			data, err := otap.ToOTLPBytes(b)
			if err != nil {
				return nil, err
			}
			req := ptraceotlp.NewExportRequest()
			if err := req.UnmarshalProto(data); err != nil {
				return nil, werror.Wrap(err)
			}
			req.Traces().ResourceSpans().MoveAndAppendTo(merged.ResourceSpans())
		}
		data, err := ptraceotlp.NewExportRequestFromTraces(merged).MarshalProto()
		if err != nil {
			return nil, werror.Wrap(err)
		}
		return otap.FromOTLPTraceBytes(data, mem)

	case graph.SignalOtapMetrics, graph.SignalMetrics:
		merged := pmetric.NewMetrics()
		for _, b := range batches {
			data, err := otap.ToOTLPBytes(b)
			if err != nil {
				return nil, err
			}
			req := pmetricotlp.NewExportRequest()
			if err := req.UnmarshalProto(data); err != nil {
				return nil, werror.Wrap(err)
			}
			req.Metrics().ResourceMetrics().MoveAndAppendTo(merged.ResourceMetrics())
		}
		data, err := pmetricotlp.NewExportRequestFromMetrics(merged).MarshalProto()
		if err != nil {
			return nil, werror.Wrap(err)
		}
		out, _, ferr := otap.FromOTLPMetricBytes(data, mem)
		return out, ferr

	default:
		return batches[0], nil
	}
}
