/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func simpleNode(id NodeId, kind NodeKind, sig Signal, edges map[PortName][]Edge) NodeDef {
	return NodeDef{
		ID: id, Kind: kind, URN: "test", InSignal: sig, OutSignal: sig,
		OutPorts: edges, Dispatch: DispatchBroadcast,
	}
}

func TestBuildAndValidateHappyPath(t *testing.T) {
	t.Parallel()

	nodes := []NodeDef{
		simpleNode("recv", KindReceiver, SignalOtapTraces, map[PortName][]Edge{
			DefaultPort: {{Dest: "proc"}},
		}),
		simpleNode("proc", KindProcessor, SignalOtapTraces, map[PortName][]Edge{
			DefaultPort: {{Dest: "exp"}},
		}),
		simpleNode("exp", KindExporter, SignalOtapTraces, nil),
	}

	g, err := Build(nodes)
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	order, err := g.TopoOrder()
	require.NoError(t, err)
	require.Len(t, order, 3)
	require.Equal(t, NodeId("recv"), order[0].ID)
	require.Equal(t, NodeId("exp"), order[2].ID)
}

func TestDuplicateNode(t *testing.T) {
	t.Parallel()

	nodes := []NodeDef{
		simpleNode("a", KindReceiver, SignalLogs, nil),
		simpleNode("a", KindExporter, SignalLogs, nil),
	}
	_, err := Build(nodes)
	require.Error(t, err)
	var dup *DuplicateNodeError
	require.ErrorAs(t, err, &dup)
}

func TestFanOutOnOnePortIsLegal(t *testing.T) {
	t.Parallel()

	// Two edges on the same port is legal (fan-out). Declaring the same
	// PortName twice cannot be expressed at all, since OutPorts is a map,
	// so this checks that a fan-out port passes validation.
	nodes := []NodeDef{
		simpleNode("a", KindReceiver, SignalLogs, map[PortName][]Edge{
			DefaultPort: {{Dest: "b"}, {Dest: "c"}},
		}),
		simpleNode("b", KindExporter, SignalLogs, nil),
		simpleNode("c", KindExporter, SignalLogs, nil),
	}
	g, err := Build(nodes)
	require.NoError(t, err)
	require.NoError(t, g.Validate())
}

func TestUnknownDestination(t *testing.T) {
	t.Parallel()

	nodes := []NodeDef{
		simpleNode("a", KindReceiver, SignalLogs, map[PortName][]Edge{
			DefaultPort: {{Dest: "ghost"}},
		}),
	}
	g, err := Build(nodes)
	require.NoError(t, err)

	err = g.Validate()
	require.Error(t, err)
	var hyper *InvalidHyperEdgeError
	require.ErrorAs(t, err, &hyper)
	require.Equal(t, []NodeId{"ghost"}, hyper.Missing)
}

func TestTypeMismatch(t *testing.T) {
	t.Parallel()

	nodes := []NodeDef{
		simpleNode("a", KindReceiver, SignalOtapTraces, map[PortName][]Edge{
			DefaultPort: {{Dest: "b"}},
		}),
		simpleNode("b", KindExporter, SignalOtapLogs, nil),
	}
	g, err := Build(nodes)
	require.NoError(t, err)

	err = g.Validate()
	require.Error(t, err)
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestCycleDetected(t *testing.T) {
	t.Parallel()

	nodes := []NodeDef{
		simpleNode("a", KindReceiver, SignalLogs, map[PortName][]Edge{
			DefaultPort: {{Dest: "b"}},
		}),
		simpleNode("b", KindProcessor, SignalLogs, map[PortName][]Edge{
			DefaultPort: {{Dest: "a"}},
		}),
	}
	g, err := Build(nodes)
	require.NoError(t, err)

	err = g.Validate()
	require.Error(t, err)
	var cyc *CycleDetectedError
	require.ErrorAs(t, err, &cyc)
}

func TestNodeUniqueIndicesAreDense(t *testing.T) {
	t.Parallel()

	nodes := []NodeDef{
		simpleNode("a", KindReceiver, SignalLogs, nil),
		simpleNode("b", KindExporter, SignalLogs, nil),
	}
	g, err := Build(nodes)
	require.NoError(t, err)

	_, ua, ok := g.Node("a")
	require.True(t, ok)
	require.Equal(t, uint16(0), ua.Index)

	_, ub, ok := g.Node("b")
	require.True(t, ok)
	require.Equal(t, uint16(1), ub.Index)
}
