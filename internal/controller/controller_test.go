/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package controller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/otap-dataflow/dataflow-go/internal/config"
	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/node"
	"github.com/otap-dataflow/dataflow-go/internal/nodes/fakereceiver"
	"github.com/otap-dataflow/dataflow-go/internal/observedstate"
)

// sinkExporter is a trivial exporter fixture standing in for a real
// network exporter so these tests never dial out.
type sinkExporter struct {
	exported chan struct{}
}

const sinkURN = "test_sink_exporter"

func newSink(exported chan struct{}) node.Factory {
	return func(graph.NodeUnique, []byte, node.CoreContext) (any, error) {
		return &sinkExporter{exported: exported}, nil
	}
}

func (s *sinkExporter) Export(_ context.Context, _ node.Message, _ node.EffectHandler) error {
	select {
	case s.exported <- struct{}{}:
	default:
	}
	return nil
}

func (s *sinkExporter) HandleControl(context.Context, node.Control, node.EffectHandler) error {
	return nil
}

func docWith(nodes map[string]config.NodeConfig) *config.Document {
	return &config.Document{
		Tenants: map[string]config.TenantConfig{
			"tenant-a": {
				Pipelines: map[string]config.PipelineConfig{
					"pipeline-1": {
						Type:  config.PipelineTypeOtlp,
						Nodes: nodes,
					},
				},
			},
		},
	}
}

func fastReceiverConfig(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(fakereceiver.Config{SignalName: "logs", BatchSize: 1, IntervalMS: 5})
	require.NoError(t, err)
	return raw
}

func TestControllerStartRejectsInvalidConfigBeforeSpawningAnyCore(t *testing.T) {
	t.Parallel()

	reg := node.NewRegistry()
	reg.Register(fakereceiver.URN, fakereceiver.New)

	doc := docWith(map[string]config.NodeConfig{
		"recv": {Kind: "receiver", URN: fakereceiver.URN, Config: fastReceiverConfig(t)},
	})

	store := observedstate.NewStore(8, 10*time.Millisecond, 4)
	c := New(reg, store)

	err := c.Start(context.Background(), doc, Quota{NumCores: 1})
	require.Error(t, err)
	require.Nil(t, c.cores)
}

func TestControllerStartRejectsEmptyDocument(t *testing.T) {
	t.Parallel()

	reg := node.NewRegistry()
	store := observedstate.NewStore(8, 10*time.Millisecond, 4)
	c := New(reg, store)

	err := c.Start(context.Background(), &config.Document{}, Quota{NumCores: 1})
	require.Error(t, err)
}

func TestControllerEndToEndRunsAndShutsDown(t *testing.T) {
	t.Parallel()

	exported := make(chan struct{}, 8)
	reg := node.NewRegistry()
	reg.Register(fakereceiver.URN, fakereceiver.New)
	reg.Register(sinkURN, newSink(exported))

	doc := docWith(map[string]config.NodeConfig{
		"recv": {
			Kind:     "receiver",
			URN:      fakereceiver.URN,
			Config:   fastReceiverConfig(t),
			OutPorts: map[string][]config.Edge{"default": {{Dest: "exp"}}},
		},
		"exp": {Kind: "exporter", URN: sinkURN},
	})

	store := observedstate.NewStore(8, 10*time.Millisecond, 4)
	c := New(reg, store)

	err := c.Start(context.Background(), doc, Quota{NumCores: 1})
	require.NoError(t, err)

	select {
	case <-exported:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the sink exporter to receive at least one message")
	}

	require.Eventually(t, func() bool { return c.Ready() }, time.Second, 5*time.Millisecond)

	key := config.PipelineKeyFor("tenant-a", "pipeline-1")
	status := c.Status()
	ps, ok := status[key]
	require.True(t, ok)
	require.Equal(t, node.PhaseRunning, ps.Phase)

	c.Shutdown(context.Background(), time.Now().Add(time.Second))
}
