/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package engine implements C5: the per-core cooperative runtime that
// hosts one core's share of every configured pipeline. A RuntimePipeline
// is the compact, fully-resolved representation the controller (C6)
// compiles once per pipeline and clones per core: node instances,
// channel topology, and edges resolved to dense NodeUnique indices.
// Grounded on spec.md §4.5.
package engine

import (
	"fmt"
	"sort"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/node"
)

// DefaultChannelCapacity bounds every node's inbound data channel.
const DefaultChannelCapacity = 256

// outPortRuntime is one out-port's resolved destinations plus the
// mutable state its dispatch strategy needs (the round-robin cursor).
type outPortRuntime struct {
	strategy graph.DispatchStrategy
	peers    []graph.NodeUnique // sorted ascending by Index
	rr       uint64
}

// nodeRuntime is one compiled node: its instance (a Receiver,
// Processor, or Exporter — see internal/node.Factory), its dense
// index, its inbound data channel (absent for receivers, which never
// consume), and its out-ports resolved to runtime dispatch state.
type nodeRuntime struct {
	id       graph.NodeId
	unique   graph.NodeUnique
	kind     graph.NodeKind
	instance any

	inbox    *dataChan
	outPorts map[graph.PortName]*outPortRuntime
}

// RuntimePipeline is one pipeline's node set and channel topology,
// compiled for a specific core.
type RuntimePipeline struct {
	Key graph.PipelineKey

	byID    map[graph.NodeId]*nodeRuntime
	byIndex map[uint16]*nodeRuntime
	order   []graph.NodeUnique // topological order, receivers first
}

// Compile builds a RuntimePipeline from a validated graph: it resolves
// every factory URN to a constructed node instance (via cc), allocates
// each processor/exporter's inbound channel, and resolves every
// out-port's destinations to dense NodeUnique peers sorted by index
// (the tie-break order LeastLoaded and RoundRobin both depend on).
func Compile(key graph.PipelineKey, g *graph.Graph, reg *node.Registry, cc node.CoreContext, channelCapacity int) (*RuntimePipeline, error) {
	if channelCapacity <= 0 {
		channelCapacity = DefaultChannelCapacity
	}
	order, err := g.TopoOrder()
	if err != nil {
		return nil, err
	}

	rp := &RuntimePipeline{
		Key:     key,
		byID:    make(map[graph.NodeId]*nodeRuntime, len(order)),
		byIndex: make(map[uint16]*nodeRuntime, len(order)),
		order:   order,
	}

	for _, unique := range order {
		def, _, ok := g.Node(unique.ID)
		if !ok {
			return nil, fmt.Errorf("engine: compiled order references unknown node %q", unique.ID)
		}
		factory, ok := reg.Lookup(def.URN)
		if !ok {
			return nil, fmt.Errorf("engine: no factory registered for urn %q (node %q)", def.URN, def.ID)
		}
		instance, err := factory(unique, def.Config, cc)
		if err != nil {
			return nil, fmt.Errorf("engine: constructing node %q: %w", def.ID, err)
		}

		nr := &nodeRuntime{
			id:       def.ID,
			unique:   unique,
			kind:     def.Kind,
			instance: instance,
			outPorts: make(map[graph.PortName]*outPortRuntime, len(def.OutPorts)),
		}
		if def.Kind != graph.KindReceiver {
			nr.inbox = newDataChan(channelCapacity)
		}
		rp.byID[def.ID] = nr
		rp.byIndex[unique.Index] = nr
	}

	for _, unique := range order {
		def, _, _ := g.Node(unique.ID)
		nr := rp.byIndex[unique.Index]
		for port, edges := range def.OutPorts {
			peers := make([]graph.NodeUnique, 0, len(edges))
			for _, e := range edges {
				dest, ok := rp.byID[e.Dest]
				if !ok {
					return nil, fmt.Errorf("engine: out-port %q of node %q references unresolved destination %q", port, def.ID, e.Dest)
				}
				peers = append(peers, dest.unique)
			}
			sort.Slice(peers, func(i, j int) bool { return peers[i].Index < peers[j].Index })
			nr.outPorts[port] = &outPortRuntime{strategy: def.Dispatch, peers: peers}
		}
	}

	return rp, nil
}

// Nodes returns every node in topological order.
func (rp *RuntimePipeline) Nodes() []graph.NodeUnique { return rp.order }

func (rp *RuntimePipeline) node(u graph.NodeUnique) *nodeRuntime { return rp.byIndex[u.Index] }
