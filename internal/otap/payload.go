/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package otap is the in-memory representation of OTAP data: a bundle
// of hierarchically linked Arrow record batches, the OTLP<->OTAP
// transcoding at the edges, splitting for size/row limits, and the
// transport optimizations (dictionary compaction, parent-id delta
// encoding) applied on the wire and undone on ingest.
package otap

// ArrowPayloadType names one record batch within an OTAP bundle. A
// bundle carries only the subset relevant to its signal: a traces
// bundle never has NumberDP, for instance.
type ArrowPayloadType int

const (
	ResourceAttrs ArrowPayloadType = iota
	ScopeAttrs

	Logs
	LogAttrs

	Metrics
	ResourceMetricsAttrs
	ScopeMetricsAttrs
	MetricAttrs
	NumberDP
	NumberDPAttrs
	NumberDPExemplars
	NumberDPExemplarAttrs
	HistogramDP
	HistogramDPAttrs
	HistogramDPExemplars
	HistogramDPExemplarAttrs
	ExpHistogramDP
	ExpHistogramDPAttrs
	ExpHistogramDPExemplars
	ExpHistogramDPExemplarAttrs
	SummaryDP
	SummaryDPAttrs

	Spans
	SpanAttrs
	SpanEvents
	SpanEventAttrs
	SpanLinks
	SpanLinkAttrs
)

func (t ArrowPayloadType) String() string {
	switch t {
	case ResourceAttrs:
		return "ResourceAttrs"
	case ScopeAttrs:
		return "ScopeAttrs"
	case Logs:
		return "Logs"
	case LogAttrs:
		return "LogAttrs"
	case Metrics:
		return "Metrics"
	case ResourceMetricsAttrs:
		return "ResourceMetricsAttrs"
	case ScopeMetricsAttrs:
		return "ScopeMetricsAttrs"
	case MetricAttrs:
		return "MetricAttrs"
	case NumberDP:
		return "NumberDP"
	case NumberDPAttrs:
		return "NumberDPAttrs"
	case NumberDPExemplars:
		return "NumberDPExemplars"
	case NumberDPExemplarAttrs:
		return "NumberDPExemplarAttrs"
	case HistogramDP:
		return "HistogramDP"
	case HistogramDPAttrs:
		return "HistogramDPAttrs"
	case HistogramDPExemplars:
		return "HistogramDPExemplars"
	case HistogramDPExemplarAttrs:
		return "HistogramDPExemplarAttrs"
	case ExpHistogramDP:
		return "ExpHistogramDP"
	case ExpHistogramDPAttrs:
		return "ExpHistogramDPAttrs"
	case ExpHistogramDPExemplars:
		return "ExpHistogramDPExemplars"
	case ExpHistogramDPExemplarAttrs:
		return "ExpHistogramDPExemplarAttrs"
	case SummaryDP:
		return "SummaryDP"
	case SummaryDPAttrs:
		return "SummaryDPAttrs"
	case Spans:
		return "Spans"
	case SpanAttrs:
		return "SpanAttrs"
	case SpanEvents:
		return "SpanEvents"
	case SpanEventAttrs:
		return "SpanEventAttrs"
	case SpanLinks:
		return "SpanLinks"
	case SpanLinkAttrs:
		return "SpanLinkAttrs"
	default:
		return "Unknown"
	}
}
