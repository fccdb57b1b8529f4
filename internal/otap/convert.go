/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/pkg/werror"
)

// DecodeError wraps a failure that occurred turning OTLP proto bytes
// into an OTAP bundle. Per §4.2, decode errors are permanent: the
// caller should drop the message with a NACK-permanent rather than
// retry it.
type DecodeError struct {
	Signal graph.Signal
	Cause  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("otap: decode %s: %v", e.Signal, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// EncodeError wraps a failure reassembling OTLP bytes from an OTAP
// bundle. Per §4.2, encode errors are treated as internal bugs: the
// caller should transition the owning pipeline to Failed.
type EncodeError struct {
	Signal graph.Signal
	Cause  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("otap: encode %s: %v", e.Signal, e.Cause)
}

func (e *EncodeError) Unwrap() error { return e.Cause }

// FromOTLPBytes parses an OTLP export-request payload for signal and
// builds the corresponding OTAP bundle.
func FromOTLPBytes(signal graph.Signal, data []byte, mem memory.Allocator) (*OtapArrowRecords, error) {
	var (
		out *OtapArrowRecords
		err error
	)
	switch signal {
	case graph.SignalOtapTraces, graph.SignalTraces:
		out, err = FromOTLPTraceBytes(data, mem)
	case graph.SignalOtapLogs, graph.SignalLogs:
		out, err = FromOTLPLogBytes(data, mem)
	case graph.SignalOtapMetrics, graph.SignalMetrics:
		out, _, err = FromOTLPMetricBytes(data, mem)
	default:
		return nil, &DecodeError{Signal: signal, Cause: fmt.Errorf("unsupported signal")}
	}
	if err != nil {
		return nil, &DecodeError{Signal: signal, Cause: err}
	}
	return out, nil
}

// ToOTLPBytes reassembles o into an OTLP export-request payload.
func ToOTLPBytes(o *OtapArrowRecords) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch o.Signal {
	case graph.SignalOtapTraces:
		data, err = ToOTLPTraceBytes(o)
	case graph.SignalOtapLogs:
		data, err = ToOTLPLogBytes(o)
	case graph.SignalOtapMetrics:
		data, err = ToOTLPMetricBytes(o)
	default:
		return nil, &EncodeError{Signal: o.Signal, Cause: fmt.Errorf("unsupported signal")}
	}
	if err != nil {
		return nil, &EncodeError{Signal: o.Signal, Cause: werror.Wrap(err)}
	}
	return data, nil
}
