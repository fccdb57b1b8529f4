/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package observedstate implements C7: the supervisor-side aggregation
// of per-core node phase events into a per-pipeline PipelineStatus,
// plus the bounded ring buffer of recent events each pipeline keeps
// for diagnostics. Grounded on original_source's
// rust/otap-dataflow/crates/state (pipeline_status.rs, reporter.rs,
// store.go's ts_to_rfc3339 idiom) and spec.md §4.7.
package observedstate

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/node"
	"github.com/otap-dataflow/dataflow-go/internal/telemetry"
)

// CoreID identifies one pinned core's worker within the process.
type CoreID int

// Event is one observed phase transition on a single core, as defined
// by spec.md §3: timestamp, pipeline, core, node, from/to phase, and
// an optional metric snapshot (attached on terminal transitions).
type Event struct {
	Timestamp      time.Time
	PipelineKey    graph.PipelineKey
	CoreID         CoreID
	NodeUnique     graph.NodeUnique
	PhaseFrom      node.Phase
	PhaseTo        node.Phase
	MetricSnapshot *telemetry.Snapshot
}

// DefaultRingCapacity is the per-pipeline event ring buffer size,
// matching spec.md §4.7's "capacity configurable, default 1024".
const DefaultRingCapacity = 1024

// DefaultReportTimeout bounds how long Report will block a producer
// before logging and dropping the event (spec.md §4.7: "timeout/
// disconnect produces a log message and drops the event — never
// blocks producers").
const DefaultReportTimeout = 50 * time.Millisecond

// CoreStatus is one core's last-known phase for a pipeline.
type CoreStatus struct {
	Phase      node.Phase
	Since      time.Time
	NodePhases map[graph.NodeUnique]node.Phase
}

// PipelineStatus is the controller-synthesized, externally visible
// view of one pipeline across every core it runs on.
type PipelineStatus struct {
	Phase      node.Phase
	PhaseSince time.Time
	PerCore    map[CoreID]CoreStatus
}

// clone deep-copies status for Snapshot's read path, so readers never
// observe a map the writer goroutine is still mutating.
func (s PipelineStatus) clone() PipelineStatus {
	out := PipelineStatus{Phase: s.Phase, PhaseSince: s.PhaseSince, PerCore: make(map[CoreID]CoreStatus, len(s.PerCore))}
	for id, cs := range s.PerCore {
		np := make(map[graph.NodeUnique]node.Phase, len(cs.NodePhases))
		for k, v := range cs.NodePhases {
			np[k] = v
		}
		out.PerCore[id] = CoreStatus{Phase: cs.Phase, Since: cs.Since, NodePhases: np}
	}
	return out
}

type ringBuffer struct {
	events []Event
	cap    int
	next   int
	full   bool
}

func newRing(capacity int) *ringBuffer {
	return &ringBuffer{events: make([]Event, capacity), cap: capacity}
}

func (r *ringBuffer) push(e Event) {
	if r.cap == 0 {
		return
	}
	r.events[r.next] = e
	r.next = (r.next + 1) % r.cap
	if r.next == 0 {
		r.full = true
	}
}

// newestFirst returns every buffered event, most recent first.
func (r *ringBuffer) newestFirst() []Event {
	n := r.next
	if r.full {
		n = r.cap
	}
	out := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		idx := (r.next - 1 - i + r.cap) % r.cap
		out = append(out, r.events[idx])
	}
	return out
}

// Store is the single shared ingress for observed events: every core's
// engine reports phase transitions here; the controller and admin HTTP
// surface read the aggregated result.
type Store struct {
	events        chan Event
	reportTimeout time.Duration
	logger        *log.Logger

	mu        sync.RWMutex
	pipelines map[graph.PipelineKey]*PipelineStatus
	rings     map[graph.PipelineKey]*ringBuffer
	ringCap   int

	now func() time.Time

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewStore creates a Store with the given ingress capacity, report
// timeout, and per-pipeline ring buffer capacity. A zero report
// timeout or ring capacity uses the package default; a zero ingress
// capacity makes the ingress channel unbuffered.
func NewStore(capacity int, reportTimeout time.Duration, ringCapacity int) *Store {
	if reportTimeout <= 0 {
		reportTimeout = DefaultReportTimeout
	}
	if ringCapacity <= 0 {
		ringCapacity = DefaultRingCapacity
	}
	return &Store{
		events:        make(chan Event, capacity),
		reportTimeout: reportTimeout,
		logger:        log.Default(),
		pipelines:     make(map[graph.PipelineKey]*PipelineStatus),
		rings:         make(map[graph.PipelineKey]*ringBuffer),
		ringCap:       ringCapacity,
		now:           time.Now,
	}
}

// Run consumes events until ctx is cancelled. Exactly one goroutine
// should call Run; it is the sole writer to the pipelines/rings maps,
// so readers of Snapshot never race with it beyond the RWMutex.
func (s *Store) Run(ctx context.Context) {
	for {
		select {
		case e := <-s.events:
			s.apply(e)
		case <-ctx.Done():
			return
		}
	}
}

// Report enqueues an event, never blocking the producer longer than
// the store's report timeout; a timed-out or disconnected report is
// logged and dropped rather than propagated as an error, per §4.7.
func (s *Store) Report(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	t := time.NewTimer(s.reportTimeout)
	defer t.Stop()
	select {
	case s.events <- e:
	case <-t.C:
		s.logger.Printf("observedstate: timeout reporting event for pipeline %s core %d node %s", e.PipelineKey, e.CoreID, e.NodeUnique.ID)
	}
}

func (s *Store) apply(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.pipelines[e.PipelineKey]
	if !ok {
		ps = &PipelineStatus{Phase: node.PhasePending, PhaseSince: e.Timestamp, PerCore: make(map[CoreID]CoreStatus)}
		s.pipelines[e.PipelineKey] = ps
		s.rings[e.PipelineKey] = newRing(s.ringCap)
	}
	s.rings[e.PipelineKey].push(e)

	cs, ok := ps.PerCore[e.CoreID]
	if !ok {
		cs = CoreStatus{Phase: e.PhaseTo, Since: e.Timestamp, NodePhases: make(map[graph.NodeUnique]node.Phase)}
	}
	if prev, ok := cs.NodePhases[e.NodeUnique]; !ok || prev != e.PhaseTo {
		cs.NodePhases[e.NodeUnique] = e.PhaseTo
	}
	cs.Phase = corePhase(cs.NodePhases)
	cs.Since = e.Timestamp
	ps.PerCore[e.CoreID] = cs

	agg := InferAggPhase(corePhases(ps.PerCore))
	if agg != ps.Phase {
		ps.Phase = agg
		ps.PhaseSince = e.Timestamp
	}
}

// corePhase reduces one core's per-node phases to a single core-level
// phase: the "worst" phase present, in the same severity order
// InferAggPhase uses across cores.
func corePhase(nodePhases map[graph.NodeUnique]node.Phase) node.Phase {
	var phases []node.Phase
	for _, p := range nodePhases {
		phases = append(phases, p)
	}
	return InferAggPhase(phases)
}

func corePhases(perCore map[CoreID]CoreStatus) []node.Phase {
	out := make([]node.Phase, 0, len(perCore))
	for _, cs := range perCore {
		out = append(out, cs.Phase)
	}
	return out
}

// InferAggPhase applies spec.md §4.7's ordered rule set to a set of
// per-core (or per-node) phases. It is a pure function of the input
// slice's contents: permuting the slice never changes the result.
func InferAggPhase(phases []node.Phase) node.Phase {
	if len(phases) == 0 {
		return node.PhasePending
	}
	var hasFailed, hasStarting, hasPending, hasRunning, hasStopping, hasDegraded bool
	allStopped := true
	for _, p := range phases {
		switch p {
		case node.PhaseFailed:
			hasFailed = true
		case node.PhaseStarting:
			hasStarting = true
		case node.PhasePending:
			hasPending = true
		case node.PhaseRunning:
			hasRunning = true
		case node.PhaseStopping:
			hasStopping = true
		case node.PhaseDegraded:
			hasDegraded = true
		}
		if p != node.PhaseStopped {
			allStopped = false
		}
	}

	switch {
	case hasFailed:
		return node.PhaseFailed
	case (hasStarting || hasPending) && !hasRunning:
		return node.PhaseStarting
	case hasStopping:
		return node.PhaseStopping
	case allStopped:
		return node.PhaseStopped
	case hasDegraded:
		return node.PhaseDegraded
	default:
		return node.PhaseRunning
	}
}

// Snapshot returns a deep copy of every pipeline's status, safe for
// JSON serialization and safe to hold after the call returns (it
// shares no mutable state with the store).
func (s *Store) Snapshot() map[graph.PipelineKey]PipelineStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[graph.PipelineKey]PipelineStatus, len(s.pipelines))
	for k, v := range s.pipelines {
		out[k] = v.clone()
	}
	return out
}

// StatusOne returns a deep copy of a single pipeline's status, and
// whether that pipeline is known at all — used by the admin surface's
// per-pipeline status lookup (§6), which must answer "unknown" rather
// than synthesize a zero-value status for a pipeline that was never
// reported.
func (s *Store) StatusOne(key graph.PipelineKey) (PipelineStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ps, ok := s.pipelines[key]
	if !ok {
		return PipelineStatus{}, false
	}
	return ps.clone(), true
}

// RecentEvents returns the given pipeline's ring buffer contents,
// newest first.
func (s *Store) RecentEvents(key graph.PipelineKey) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rings[key]
	if !ok {
		return nil
	}
	return r.newestFirst()
}
