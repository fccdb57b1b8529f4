/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/node"
	"github.com/otap-dataflow/dataflow-go/internal/observedstate"
)

type stubInstance struct{}

func stubFactory(graph.NodeUnique, []byte, node.CoreContext) (any, error) {
	return &stubInstance{}, nil
}

func simpleNode(id graph.NodeId, kind graph.NodeKind, edges map[graph.PortName][]graph.Edge) graph.NodeDef {
	return graph.NodeDef{
		ID: id, Kind: kind, URN: "stub", InSignal: graph.SignalLogs, OutSignal: graph.SignalLogs,
		OutPorts: edges, Dispatch: graph.DispatchRoundRobin,
	}
}

func TestCompileResolvesTopoOrderAndOutPorts(t *testing.T) {
	t.Parallel()

	nodes := []graph.NodeDef{
		simpleNode("recv", graph.KindReceiver, map[graph.PortName][]graph.Edge{
			graph.DefaultPort: {{Dest: "exp"}},
		}),
		simpleNode("exp", graph.KindExporter, nil),
	}
	g, err := graph.Build(nodes)
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	reg := node.NewRegistry()
	reg.Register("stub", stubFactory)

	rp, err := Compile(graph.PipelineKey{Group: "t", ID: "p"}, g, reg, node.CoreContext{}, 0)
	require.NoError(t, err)

	order := rp.Nodes()
	require.Len(t, order, 2)
	require.Equal(t, graph.NodeId("recv"), order[0].ID)
	require.Equal(t, graph.NodeId("exp"), order[1].ID)

	recvRuntime := rp.node(order[0])
	require.Nil(t, recvRuntime.inbox, "receivers never consume, so they get no inbox")
	require.Len(t, recvRuntime.outPorts[graph.DefaultPort].peers, 1)
	require.Equal(t, order[1], recvRuntime.outPorts[graph.DefaultPort].peers[0])

	expRuntime := rp.node(order[1])
	require.NotNil(t, expRuntime.inbox, "a non-receiver gets a bounded inbox")
}

func TestCompileRejectsUnregisteredURN(t *testing.T) {
	t.Parallel()

	nodes := []graph.NodeDef{
		simpleNode("recv", graph.KindReceiver, nil),
	}
	g, err := graph.Build(nodes)
	require.NoError(t, err)

	reg := node.NewRegistry()
	_, err = Compile(graph.PipelineKey{Group: "t", ID: "p"}, g, reg, node.CoreContext{}, 0)
	require.Error(t, err)
}

func TestCompileDefaultsChannelCapacity(t *testing.T) {
	t.Parallel()

	nodes := []graph.NodeDef{
		simpleNode("recv", graph.KindReceiver, map[graph.PortName][]graph.Edge{
			graph.DefaultPort: {{Dest: "exp"}},
		}),
		simpleNode("exp", graph.KindExporter, nil),
	}
	g, err := graph.Build(nodes)
	require.NoError(t, err)

	reg := node.NewRegistry()
	reg.Register("stub", stubFactory)

	rp, err := Compile(graph.PipelineKey{Group: "t", ID: "p"}, g, reg, node.CoreContext{}, -1)
	require.NoError(t, err)
	expRuntime := rp.node(rp.Nodes()[1])
	require.Equal(t, DefaultChannelCapacity, cap(expRuntime.inbox.Chan()))
}

func TestNewCoreRunAndShutdownWithNoPipelines(t *testing.T) {
	t.Parallel()

	store := observedstate.NewStore(8, 10*time.Millisecond, 4)
	core := NewCore(0, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		core.Run(ctx)
		close(done)
	}()

	cancel()
	<-done
}
