/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package graph

import (
	"fmt"
	"strings"
)

// CycleDetectedError reports a cycle found during validation, with the
// path of node ids that forms it (first and last entries equal).
type CycleDetectedError struct {
	Path []NodeId
}

func (e *CycleDetectedError) Error() string {
	if len(e.Path) == 0 {
		return "graph: cycle detected"
	}
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = string(id)
	}
	return fmt.Sprintf("graph: cycle detected: %s", strings.Join(parts, " -> "))
}

// TypeMismatchError reports an edge whose producer out-signal does not
// equal the consumer's in-signal.
type TypeMismatchError struct {
	From, To             NodeId
	FromSignal, ToSignal Signal
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("graph: signal type mismatch on edge %s(%s) -> %s(%s)",
		e.From, e.FromSignal, e.To, e.ToSignal)
}

// DuplicateNodeError reports a NodeId used by more than one node.
type DuplicateNodeError struct {
	ID NodeId
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("graph: duplicate node id %q", e.ID)
}

// DuplicateOutPortError reports the same (node, port) declared twice.
type DuplicateOutPortError struct {
	Node NodeId
	Port PortName
}

func (e *DuplicateOutPortError) Error() string {
	return fmt.Sprintf("graph: duplicate out-port %q on node %q", e.Port, e.Node)
}

// UnknownNodeError reports an edge endpoint that names no node.
type UnknownNodeError struct {
	ID NodeId
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("graph: unknown node %q", e.ID)
}

// InvalidHyperEdgeError reports an out-port whose destinations or
// dispatch strategy are inconsistent (e.g. a destination that does not
// exist).
type InvalidHyperEdgeError struct {
	Source   NodeId
	Port     PortName
	Strategy DispatchStrategy
	Missing  []NodeId
}

func (e *InvalidHyperEdgeError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		parts[i] = string(id)
	}
	return fmt.Sprintf("graph: out-port %q of node %q references unknown destinations [%s]",
		e.Port, e.Source, strings.Join(parts, ", "))
}
