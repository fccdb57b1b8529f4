/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package node

import "time"

// Phase is a node's externally observable lifecycle stage.
//
//	Pending --start--> Starting --ready--> Running
//	                                    |
//	                        (sustained errors) v
//	                                   Degraded --recover--> Running
//	Running --shutdown--> Stopping --drain done--> Stopped
//	any     --fatal-----> Failed
type Phase int

const (
	PhasePending Phase = iota
	PhaseStarting
	PhaseRunning
	PhaseDegraded
	PhaseStopping
	PhaseStopped
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "Pending"
	case PhaseStarting:
		return "Starting"
	case PhaseRunning:
		return "Running"
	case PhaseDegraded:
		return "Degraded"
	case PhaseStopping:
		return "Stopping"
	case PhaseStopped:
		return "Stopped"
	case PhaseFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// validTransitions enumerates the edges of the state machine above.
// Same-phase "transitions" are always allowed and are a no-op
// (idempotent duplicate reports).
var validTransitions = map[Phase]map[Phase]bool{
	PhasePending:  {PhaseStarting: true, PhaseFailed: true},
	PhaseStarting: {PhaseRunning: true, PhaseFailed: true, PhaseStopping: true},
	PhaseRunning:  {PhaseDegraded: true, PhaseStopping: true, PhaseFailed: true},
	PhaseDegraded: {PhaseRunning: true, PhaseStopping: true, PhaseFailed: true},
	PhaseStopping: {PhaseStopped: true, PhaseFailed: true},
	PhaseStopped:  {},
	PhaseFailed:   {},
}

// CanTransition reports whether moving from -> to is legal. Reporting
// the same phase twice is always legal and is treated as a no-op by
// callers.
func CanTransition(from, to Phase) bool {
	if from == to {
		return true
	}
	return validTransitions[from][to]
}

// TerminalState is attached to a node's final Stopped/Failed report.
// Deadline is nil when the node was never given a shutdown deadline
// (e.g. it failed before any Shutdown control message arrived);
// otherwise it is the absolute time by which drain had to complete.
type TerminalState struct {
	Deadline       *time.Time
	MetricSnapshot map[string]int64
}

// Transition is a single Phase change with its timestamp, used both
// internally by the node and reported upstream as an Observed event.
type Transition struct {
	From, To Phase
	At       time.Time
}
