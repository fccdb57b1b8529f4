/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package graph builds and validates the typed DAG of receivers,
// processors, and exporters that makes up one pipeline: duplicate,
// cycle, signal-type, and dispatch-strategy checks all live here, plus
// the topological ordering the controller uses to compile a
// RuntimePipeline.
package graph

import (
	"fmt"
	"sort"
)

// NodeId names a node within a single pipeline.
type NodeId string

// PortName names an out-port on a node; most nodes have exactly one,
// named DefaultPort.
type PortName string

// DefaultPort is used by nodes that don't declare named out-ports.
const DefaultPort PortName = "out"

// PipelineKey identifies a pipeline within a tenant: group + id.
type PipelineKey struct {
	Group string
	ID    string
}

func (k PipelineKey) String() string { return k.Group + "/" + k.ID }

// NodeUnique pairs a NodeId with a monotonically assigned dense index,
// used for O(1) addressing into per-core tables. Index overflow past
// 2^16 nodes in one pipeline is a fatal config error.
type NodeUnique struct {
	ID    NodeId
	Index uint16
}

// Signal is the pdata shape carried on an edge.
type Signal int

const (
	SignalLogs Signal = iota
	SignalMetrics
	SignalTraces
	SignalOtapLogs
	SignalOtapMetrics
	SignalOtapTraces
)

func (s Signal) String() string {
	switch s {
	case SignalLogs:
		return "Logs"
	case SignalMetrics:
		return "Metrics"
	case SignalTraces:
		return "Traces"
	case SignalOtapLogs:
		return "OtapLogs"
	case SignalOtapMetrics:
		return "OtapMetrics"
	case SignalOtapTraces:
		return "OtapTraces"
	default:
		return "Unknown"
	}
}

// NodeKind is one of the three node roles.
type NodeKind int

const (
	KindReceiver NodeKind = iota
	KindProcessor
	KindExporter
)

// DispatchStrategy governs how a producer's emission maps to the
// destinations wired to one out-port.
type DispatchStrategy int

const (
	// DispatchBroadcast sends a copy to every peer; delivery succeeds
	// only if every peer accepts.
	DispatchBroadcast DispatchStrategy = iota
	// DispatchRoundRobin advances through peers in order.
	DispatchRoundRobin
	// DispatchLeastLoaded picks the peer with the lowest queue depth,
	// ties broken by the smallest NodeUnique.Index.
	DispatchLeastLoaded
	// DispatchRandom picks a peer uniformly at random.
	DispatchRandom
)

// Edge connects a (source, out-port) to a destination node.
type Edge struct {
	Dest NodeId
}

// NodeDef describes one node as given in pipeline configuration,
// before graph construction resolves its dense index.
type NodeDef struct {
	ID        NodeId
	Kind      NodeKind
	URN       string
	Config    []byte // opaque JSON user config, interpreted by the node's factory
	InSignal  Signal
	OutSignal Signal
	OutPorts  map[PortName][]Edge
	Dispatch  DispatchStrategy
}

// compiledNode is a NodeDef plus its resolved dense index.
type compiledNode struct {
	NodeDef
	Unique NodeUnique
}

// Graph is a validated, topologically ordered DAG of nodes.
type Graph struct {
	nodes   map[NodeId]*compiledNode
	order   []NodeUnique
	byIndex []*compiledNode
}

// Build constructs a Graph from a node set, resolving dense indices.
// It rejects only duplicate node ids and oversize node sets; call
// Validate separately for the edge and cycle checks, which return the
// first error found.
func Build(nodes []NodeDef) (*Graph, error) {
	if len(nodes) > 1<<16 {
		return nil, fmt.Errorf("graph: %d nodes exceeds the 65536 dense-index limit", len(nodes))
	}

	g := &Graph{
		nodes: make(map[NodeId]*compiledNode, len(nodes)),
	}

	// Stable order: as given, so Index assignment is deterministic for
	// a given config file.
	for i, n := range nodes {
		if _, dup := g.nodes[n.ID]; dup {
			return nil, &DuplicateNodeError{ID: n.ID}
		}
		cn := &compiledNode{NodeDef: n, Unique: NodeUnique{ID: n.ID, Index: uint16(i)}}
		g.nodes[n.ID] = cn
		g.byIndex = append(g.byIndex, cn)
	}
	return g, nil
}

// Validate checks duplicate out-ports, unknown edge endpoints, signal
// type agreement, hyper-edge/dispatch consistency, and acyclicity.
func (g *Graph) Validate() error {
	for _, n := range g.byIndex {
		seenPorts := make(map[PortName]bool, len(n.OutPorts))
		for port, edges := range n.OutPorts {
			if seenPorts[port] {
				return &DuplicateOutPortError{Node: n.ID, Port: port}
			}
			seenPorts[port] = true

			if len(edges) == 0 {
				continue
			}
			if n.Dispatch == DispatchLeastLoaded && len(edges) > 1 {
				// LeastLoaded needs live queue-depth reads at dispatch
				// time; at validation time we only check the peers exist.
			}
			missing := make([]NodeId, 0)
			for _, e := range edges {
				dest, ok := g.nodes[e.Dest]
				if !ok {
					missing = append(missing, e.Dest)
					continue
				}
				if dest.InSignal != n.OutSignal {
					return &TypeMismatchError{
						From: n.ID, To: dest.ID,
						FromSignal: n.OutSignal, ToSignal: dest.InSignal,
					}
				}
			}
			if len(missing) > 0 {
				return &InvalidHyperEdgeError{
					Source: n.ID, Port: port, Strategy: n.Dispatch, Missing: missing,
				}
			}
		}
	}

	if err := g.detectCycle(); err != nil {
		return err
	}

	order, err := g.topoOrder()
	if err != nil {
		return err
	}
	g.order = order
	return nil
}

// TopoOrder returns the nodes in dependency order (sources before
// sinks). Validate must have succeeded first.
func (g *Graph) TopoOrder() ([]NodeUnique, error) {
	if g.order != nil {
		return g.order, nil
	}
	return g.topoOrder()
}

// Node looks up a node's definition by id.
func (g *Graph) Node(id NodeId) (NodeDef, NodeUnique, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return NodeDef{}, NodeUnique{}, false
	}
	return n.NodeDef, n.Unique, true
}

// visitState is used by both cycle detection and topological sort.
type visitState int

const (
	unvisited visitState = iota
	inProgress
	done
)

func (g *Graph) detectCycle() error {
	state := make(map[NodeId]visitState, len(g.byIndex))
	var path []NodeId

	var visit func(id NodeId) error
	visit = func(id NodeId) error {
		switch state[id] {
		case done:
			return nil
		case inProgress:
			// Found the repeated node; trim path to the cycle itself.
			start := 0
			for i, p := range path {
				if p == id {
					start = i
					break
				}
			}
			cycle := append(append([]NodeId{}, path[start:]...), id)
			return &CycleDetectedError{Path: cycle}
		}

		state[id] = inProgress
		path = append(path, id)

		n := g.nodes[id]
		// Deterministic traversal order over ports/edges.
		ports := make([]PortName, 0, len(n.OutPorts))
		for p := range n.OutPorts {
			ports = append(ports, p)
		}
		sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
		for _, p := range ports {
			for _, e := range n.OutPorts[p] {
				if _, ok := g.nodes[e.Dest]; !ok {
					continue // reported separately by Validate's edge check
				}
				if err := visit(e.Dest); err != nil {
					return err
				}
			}
		}

		path = path[:len(path)-1]
		state[id] = done
		return nil
	}

	for _, n := range g.byIndex {
		if state[n.ID] == unvisited {
			if err := visit(n.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Graph) topoOrder() ([]NodeUnique, error) {
	indeg := make(map[NodeId]int, len(g.byIndex))
	for _, n := range g.byIndex {
		indeg[n.ID] = 0
	}
	for _, n := range g.byIndex {
		for _, edges := range n.OutPorts {
			for _, e := range edges {
				if _, ok := g.nodes[e.Dest]; ok {
					indeg[e.Dest]++
				}
			}
		}
	}

	var queue []*compiledNode
	for _, n := range g.byIndex {
		if indeg[n.ID] == 0 {
			queue = append(queue, n)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i].Unique.Index < queue[j].Unique.Index })

	var out []NodeUnique
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n.Unique)

		var next []*compiledNode
		ports := make([]PortName, 0, len(n.OutPorts))
		for p := range n.OutPorts {
			ports = append(ports, p)
		}
		sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
		for _, p := range ports {
			for _, e := range n.OutPorts[p] {
				dest, ok := g.nodes[e.Dest]
				if !ok {
					continue
				}
				indeg[e.Dest]--
				if indeg[e.Dest] == 0 {
					next = append(next, dest)
				}
			}
		}
		sort.Slice(next, func(i, j int) bool { return next[i].Unique.Index < next[j].Unique.Index })
		queue = append(queue, next...)
	}

	if len(out) != len(g.byIndex) {
		return nil, &CycleDetectedError{Path: nil}
	}
	return out, nil
}
