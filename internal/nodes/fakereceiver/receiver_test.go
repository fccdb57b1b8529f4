/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package fakereceiver

import (
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/node"
	otelarrow "github.com/otap-dataflow/dataflow-go/pkg/otel/common/arrow"
)

type collectingMetricSet struct {
	counters map[string]int64
}

func (m *collectingMetricSet) Inc(counter string, delta int64) {
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[counter] += delta
}
func (m *collectingMetricSet) Set(string, int64) {}

type fakeEffectHandler struct {
	emitted []node.Message
	metrics *collectingMetricSet
}

func (h *fakeEffectHandler) Emit(ctx context.Context, msgs ...node.Message) error {
	return h.EmitTo(ctx, graph.DefaultPort, msgs...)
}
func (h *fakeEffectHandler) EmitTo(_ context.Context, _ graph.PortName, msgs ...node.Message) error {
	h.emitted = append(h.emitted, msgs...)
	return nil
}
func (h *fakeEffectHandler) Ack(node.MsgID)                        {}
func (h *fakeEffectHandler) Nack(node.MsgID, node.ErrorKind, bool) {}
func (h *fakeEffectHandler) SpawnLocal(func(context.Context))      {}
func (h *fakeEffectHandler) Now() time.Time                        { return time.Now() }
func (h *fakeEffectHandler) MetricSet(string) node.MetricSet {
	if h.metrics == nil {
		h.metrics = &collectingMetricSet{}
	}
	return h.metrics
}

func TestParseConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := parseConfig(nil)
	require.NoError(t, err)
	require.Equal(t, graph.SignalLogs, cfg.Signal)
	require.Equal(t, 10, cfg.batchSize())
	require.Equal(t, 100*time.Millisecond, cfg.interval())
}

func TestParseConfigSignals(t *testing.T) {
	t.Parallel()
	for name, want := range map[string]graph.Signal{
		"logs":    graph.SignalLogs,
		"metrics": graph.SignalMetrics,
		"traces":  graph.SignalTraces,
	} {
		cfg, err := parseConfig([]byte(`{"signal":"` + name + `"}`))
		require.NoError(t, err)
		require.Equal(t, want, cfg.Signal)
	}
}

func TestParseConfigUnknownSignal(t *testing.T) {
	t.Parallel()
	_, err := parseConfig([]byte(`{"signal":"bogus"}`))
	require.Error(t, err)
}

func TestParseConfigRejectsMalformedJSON(t *testing.T) {
	t.Parallel()
	_, err := parseConfig([]byte(`{not json`))
	require.Error(t, err)
}

func TestNewConstructsReceiver(t *testing.T) {
	t.Parallel()
	v, err := New(graph.NodeUnique{ID: "recv"}, []byte(`{"signal":"metrics","batch_size":3}`), node.CoreContext{})
	require.NoError(t, err)
	r, ok := v.(*Receiver)
	require.True(t, ok)
	require.Equal(t, graph.SignalMetrics, r.cfg.Signal)
	require.Equal(t, 3, r.cfg.batchSize())
}

func TestGenerateReturnsErrorWhenOverMemoryLimit(t *testing.T) {
	t.Parallel()

	v, err := New(graph.NodeUnique{ID: "recv"}, []byte(`{"batch_size":1000,"memory_limit_mb":0}`), node.CoreContext{})
	require.NoError(t, err)
	r := v.(*Receiver)
	r.mem = otelarrow.NewLimitedAllocator(memory.NewGoAllocator(), 1)

	_, err = r.generate()
	require.Error(t, err)
	_, ok := otelarrow.NewLimitErrorFromError(err)
	require.True(t, ok)
}

func TestStartEmitsUntilShutdown(t *testing.T) {
	t.Parallel()

	v, err := New(graph.NodeUnique{ID: "recv"}, []byte(`{"signal":"logs","batch_size":1,"interval_ms":1}`), node.CoreContext{})
	require.NoError(t, err)
	r := v.(*Receiver)

	control := make(chan node.Control)
	eh := &fakeEffectHandler{}

	done := make(chan error, 1)
	go func() { done <- r.Start(context.Background(), control, eh) }()

	require.Eventually(t, func() bool { return len(eh.emitted) > 0 }, time.Second, time.Millisecond)

	control <- node.Control{Kind: node.ControlShutdown}
	require.NoError(t, <-done)

	msg := eh.emitted[0]
	require.Equal(t, node.PDataKindOtapArrowRecords, msg.Data.Kind)
	require.Equal(t, graph.SignalLogs, msg.Data.Signal)
	require.NotNil(t, msg.Data.Records)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	v, err := New(graph.NodeUnique{ID: "recv"}, []byte(`{"interval_ms":1}`), node.CoreContext{})
	require.NoError(t, err)
	r := v.(*Receiver)

	ctx, cancel := context.WithCancel(context.Background())
	control := make(chan node.Control)
	eh := &fakeEffectHandler{}

	done := make(chan error, 1)
	go func() { done <- r.Start(ctx, control, eh) }()

	cancel()
	require.NoError(t, <-done)
}
