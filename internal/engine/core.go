/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package engine

import (
	"context"
	"math/rand"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/logging"
	"github.com/otap-dataflow/dataflow-go/internal/node"
	"github.com/otap-dataflow/dataflow-go/internal/observedstate"
	"github.com/otap-dataflow/dataflow-go/internal/telemetry"
)

// TimerInterval is the cadence of the core's TimerTick control
// broadcast, driving batch-flush and retry-backoff checks. It is also
// the granularity at which a Stopping node's shutdown deadline is
// checked (§4.5 step 4): a node can run up to TimerInterval past its
// deadline before being force-failed.
const TimerInterval = 100 * time.Millisecond

// Core is one pinned core's cooperative runtime. Every processor and
// exporter this core hosts is driven from a single goroutine — this
// one, running Run — which multiplexes every such node's control
// subscription and inbox with reflect.Select (the dynamic-arity
// counterpart of a native select, needed because the case list is
// built from however many nodes this core was handed at Compile time).
// Within that goroutine shared-per-core resources (metric sets, the
// RNG, dispatch round-robin cursors) are touched by exactly one node's
// logic at a time with no suspension in between, so none of it needs
// locking (§4.5/§5: "no locks; shared-per-core resources ... are
// accessed exclusively by their owning task").
//
// Receivers are the one exception: node.Receiver.Start is a blocking
// call a real receiver implements by wrapping something like
// grpc.Server.Serve, which has no cooperative-yield point Go can hook
// into (Rust's LocalSet has the same problem for any !Send future that
// blocks the executor; the otap-dataflow reference engine sidesteps it
// the same way real receivers there are expected to yield control back
// promptly). A receiver therefore still runs on its own goroutine, and
// reports its completion back into the core loop over receiverDone
// rather than touching core state directly — the one channel hop that
// keeps the "single owner mutates this" property intact for the rest
// of the core. Because of that exception, the metric-set map and its
// mutex, and the atomic counters inside telemetry.Set, remain: a
// receiver goroutine and the core loop can legitimately record to the
// same node's metric set at once, and the admin status handler and
// telemetry.Reporter collector both read snapshots from a goroutine
// that is neither.
type Core struct {
	ID    observedstate.CoreID
	clock func() time.Time

	control   *controlChan
	pipelines []*RuntimePipeline
	observed  *observedstate.Store
	log       *logging.Logger

	rng *rand.Rand

	metricsMu  sync.Mutex
	metricSets map[string]*telemetry.Set

	spawnQueue   chan func(context.Context)
	receiverDone chan receiverExit

	// reporter, if set via SetReporter before Run starts, drains every
	// metric set this core owns into a shared collector channel on
	// every TimerTick. Left nil, as in tests that construct a bare
	// Core, metrics are simply never reported off-core.
	reporter *telemetry.Reporter

	// allDone is closed by Run once every node this core hosts has
	// reached a terminal phase (Stopped or Failed). Always allocated
	// up front so Shutdown can wait on it even if called concurrently
	// with Run's own startup.
	allDone chan struct{}
}

// receiverExit is how a receiver goroutine reports completion back
// into the single cooperative loop, which owns every phase transition
// and downstream bookkeeping.
type receiverExit struct {
	rp  *RuntimePipeline
	nr  *nodeRuntime
	err error
}

// NewCore constructs an idle core; call AddPipeline for each
// RuntimePipeline it should host, then Run.
func NewCore(id observedstate.CoreID, observed *observedstate.Store) *Core {
	return &Core{
		ID:           id,
		clock:        time.Now,
		control:      newControlChan(),
		observed:     observed,
		log:          logging.For("core", coreLabel(id), "-"),
		rng:          newRNG(int64(id) + 1),
		metricSets:   make(map[string]*telemetry.Set),
		spawnQueue:   make(chan func(context.Context), 1024),
		receiverDone: make(chan receiverExit, 64),
		allDone:      make(chan struct{}),
	}
}

func coreLabel(id observedstate.CoreID) string {
	return "core-" + strconv.Itoa(int(id))
}

// AddPipeline registers a compiled RuntimePipeline for this core to
// run.
func (c *Core) AddPipeline(rp *RuntimePipeline) {
	c.pipelines = append(c.pipelines, rp)
}

// SetReporter wires a shared telemetry.Reporter this core's loop
// drains every metric set through once per TimerTick. Must be called
// before Run; the controller wires one Reporter per process, shared by
// every core, since Reporter.Report's channel send is already safe for
// concurrent callers.
func (c *Core) SetReporter(r *telemetry.Reporter) {
	c.reporter = r
}

func (c *Core) spawn(fn func(context.Context)) {
	select {
	case c.spawnQueue <- fn:
	default:
		c.log.Warnf("spawn queue full, dropping scheduled task")
	}
}

func (c *Core) metricSet(nodeID, name string) *telemetry.Set {
	key := nodeID + "/" + name
	c.metricsMu.Lock()
	defer c.metricsMu.Unlock()
	s, ok := c.metricSets[key]
	if !ok {
		s = telemetry.NewSet(key)
		c.metricSets[key] = s
	}
	return s
}

// MetricSets returns a snapshot of every metric set this core owns,
// keyed by "nodeID/setName" — used by TerminalState reporting, the
// telemetry.Reporter collector, and tests.
func (c *Core) MetricSets() map[string]telemetry.Snapshot {
	c.metricsMu.Lock()
	defer c.metricsMu.Unlock()
	out := make(map[string]telemetry.Snapshot, len(c.metricSets))
	for k, s := range c.metricSets {
		out[k] = s.Snapshot()
	}
	return out
}

// worker is one processor or exporter node as driven by the core's
// single cooperative loop: its runtime state, plus the mutable phase
// and shutdown-deadline bookkeeping that loop alone mutates.
type worker struct {
	rp  *RuntimePipeline
	nr  *nodeRuntime
	eh  node.EffectHandler
	sub <-chan node.Control

	proc node.Processor
	exp  node.Exporter

	phase    node.Phase
	deadline time.Time
	done     bool
}

// Select case layout: four fixed cases, then two per worker (control
// subscription, then inbox).
const (
	caseCtxDone = iota
	caseTicker
	caseSpawn
	caseReceiverDone
	caseWorkerBase
)

// Run pins this goroutine to its core, starts every receiver on its
// own goroutine, and then becomes the single cooperative scheduler for
// every processor and exporter this core hosts, driving the timer
// wheel and spawn queue alongside them. Once every node has reached a
// terminal phase it closes allDone (what Shutdown waits on) and keeps
// serving; it returns only when ctx is cancelled.
func (c *Core) Run(ctx context.Context) {
	if err := pinToCore(int(c.ID)); err != nil {
		c.log.Warnf("core affinity unavailable: %v", err)
	}

	workers := c.buildWorkers()
	liveWorkers := len(workers)
	liveReceivers := c.startReceivers(ctx)

	ticker := time.NewTicker(TimerInterval)
	defer ticker.Stop()
	var epoch uint64

	cases := c.buildSelectCases(ctx, ticker, workers)
	var doneSignaled bool

	for {
		if !doneSignaled && liveWorkers == 0 && liveReceivers == 0 {
			doneSignaled = true
			close(c.allDone)
		}

		chosen, recv, recvOK := reflect.Select(cases)
		switch chosen {
		case caseCtxDone:
			return
		case caseTicker:
			now := recv.Interface().(time.Time)
			epoch++
			c.control.Publish(node.Control{Kind: node.ControlTimerTick, Epoch: epoch, Now: now})
			c.checkDeadlines(workers, now, cases, &liveWorkers)
			c.reportMetrics(ctx)
		case caseSpawn:
			if recvOK {
				recv.Interface().(func(context.Context))(ctx)
			}
		case caseReceiverDone:
			if recvOK {
				exit := recv.Interface().(receiverExit)
				c.finishReceiver(exit)
				liveReceivers--
			}
		default:
			c.dispatchWorkerEvent(ctx, workers, chosen, recv, recvOK, cases, &liveWorkers)
		}
	}
}

// buildWorkers constructs the worker table for every processor and
// exporter across every pipeline this core hosts, subscribing each to
// the control channel and reporting its Pending->Starting->Running
// transition up front, matching what every node (including receivers)
// goes through before doing any work.
func (c *Core) buildWorkers() []*worker {
	var workers []*worker
	for _, rp := range c.pipelines {
		for _, u := range rp.Nodes() {
			nr := rp.node(u)
			if nr.kind == graph.KindReceiver {
				continue
			}
			eh := &effectHandler{core: c, rp: rp, nr: nr}
			sub := c.control.Subscribe(32)
			c.reportPhase(rp.Key, nr, node.PhasePending, node.PhaseStarting)
			c.reportPhase(rp.Key, nr, node.PhaseStarting, node.PhaseRunning)

			w := &worker{rp: rp, nr: nr, eh: eh, sub: sub, phase: node.PhaseRunning}
			switch nr.kind {
			case graph.KindProcessor:
				w.proc = nr.instance.(node.Processor)
			case graph.KindExporter:
				w.exp = nr.instance.(node.Exporter)
			}
			workers = append(workers, w)
		}
	}
	return workers
}

// startReceivers launches every receiver on its own goroutine (the
// justified exception documented on Core) and returns how many are
// now live.
func (c *Core) startReceivers(ctx context.Context) int {
	var n int
	for _, rp := range c.pipelines {
		for _, u := range rp.Nodes() {
			nr := rp.node(u)
			if nr.kind != graph.KindReceiver {
				continue
			}
			eh := &effectHandler{core: c, rp: rp, nr: nr}
			sub := c.control.Subscribe(32)
			c.reportPhase(rp.Key, nr, node.PhasePending, node.PhaseStarting)

			n++
			go c.runReceiver(ctx, rp, nr, sub, eh)
		}
	}
	return n
}

func (c *Core) runReceiver(ctx context.Context, rp *RuntimePipeline, nr *nodeRuntime, sub <-chan node.Control, eh node.EffectHandler) {
	c.reportPhase(rp.Key, nr, node.PhaseStarting, node.PhaseRunning)
	recv := nr.instance.(node.Receiver)
	err := recv.Start(ctx, sub, eh)
	c.receiverDone <- receiverExit{rp: rp, nr: nr, err: err}
}

// finishReceiver applies the phase transition for a receiver that has
// returned from Start; it always runs on the core's single loop, never
// on the receiver's own goroutine.
func (c *Core) finishReceiver(exit receiverExit) {
	if exit.err != nil {
		c.log.Errorf("receiver %s failed: %v", exit.nr.id, exit.err)
		c.reportPhase(exit.rp.Key, exit.nr, node.PhaseRunning, node.PhaseFailed)
		return
	}
	c.reportPhase(exit.rp.Key, exit.nr, node.PhaseStopping, node.PhaseStopped)
}

func (c *Core) buildSelectCases(ctx context.Context, ticker *time.Ticker, workers []*worker) []reflect.SelectCase {
	cases := make([]reflect.SelectCase, caseWorkerBase+2*len(workers))
	cases[caseCtxDone] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())}
	cases[caseTicker] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ticker.C)}
	cases[caseSpawn] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(c.spawnQueue)}
	cases[caseReceiverDone] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(c.receiverDone)}
	for i, w := range workers {
		cases[caseWorkerBase+2*i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(w.sub)}
		cases[caseWorkerBase+2*i+1] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(w.nr.inbox.Chan())}
	}
	return cases
}

// disableWorkerCases retires a finished worker's two cases so
// reflect.Select never chooses them again; the technique mirrors a nil
// channel blocking forever in a native select.
func disableWorkerCases(cases []reflect.SelectCase, idx int) {
	cases[caseWorkerBase+2*idx].Chan = reflect.Value{}
	cases[caseWorkerBase+2*idx+1].Chan = reflect.Value{}
}

func (c *Core) dispatchWorkerEvent(ctx context.Context, workers []*worker, chosen int, recv reflect.Value, ok bool, cases []reflect.SelectCase, liveWorkers *int) {
	idx := (chosen - caseWorkerBase) / 2
	isControl := (chosen-caseWorkerBase)%2 == 0
	w := workers[idx]

	if isControl {
		if !ok {
			return
		}
		c.handleWorkerControl(ctx, w, recv.Interface().(node.Control))
	} else {
		if !ok {
			c.finishWorker(w, node.PhaseStopped)
		} else {
			c.handleWorkerMessage(ctx, w, recv.Interface().(node.Message))
		}
	}

	if w.done {
		*liveWorkers--
		disableWorkerCases(cases, idx)
	}
}

func (c *Core) handleWorkerControl(ctx context.Context, w *worker, ctrl node.Control) {
	var err error
	if w.proc != nil {
		err = w.proc.HandleControl(ctx, ctrl, w.eh)
	} else {
		err = w.exp.HandleControl(ctx, ctrl, w.eh)
	}
	if err != nil {
		c.log.Errorf("%s control handling failed: %v", w.nr.id, err)
		c.failWorker(w)
		return
	}
	if ctrl.Kind == node.ControlShutdown && w.phase == node.PhaseRunning {
		c.reportPhase(w.rp.Key, w.nr, w.phase, node.PhaseStopping)
		w.phase = node.PhaseStopping
		w.deadline = ctrl.Deadline
	}
}

func (c *Core) handleWorkerMessage(ctx context.Context, w *worker, msg node.Message) {
	if w.proc != nil {
		if err := w.proc.Process(ctx, msg, w.eh); err != nil {
			c.log.Errorf("processor %s failed: %v", w.nr.id, err)
			c.failWorker(w)
		}
		return
	}
	if err := w.exp.Export(ctx, msg, w.eh); err != nil {
		w.eh.Nack(msg.ID, node.ErrorKindTransient, false)
	} else {
		w.eh.Ack(msg.ID)
	}
}

func (c *Core) failWorker(w *worker) {
	c.reportPhase(w.rp.Key, w.nr, w.phase, node.PhaseFailed)
	w.phase = node.PhaseFailed
	w.done = true
}

func (c *Core) finishWorker(w *worker, to node.Phase) {
	c.reportPhase(w.rp.Key, w.nr, w.phase, to)
	w.phase = to
	w.done = true
}

// checkDeadlines runs every TimerTick and implements §4.5 step 4: a
// node still Stopping once its shutdown deadline has passed is forced
// through a final non-blocking drain of whatever is already queued in
// its inbox (Nack'd permanent, counted as dropped_shutdown) and then
// force-transitioned to Failed. A node with nothing left to drop at
// its deadline is instead left to report Stopped, matching the
// testable property of scenario 4: exactly one of (all delivered,
// Stopped) or (dropped_shutdown counted, Failed), never a silent
// partial loss.
func (c *Core) checkDeadlines(workers []*worker, now time.Time, cases []reflect.SelectCase, liveWorkers *int) {
	for idx, w := range workers {
		if w.done || w.phase != node.PhaseStopping || w.deadline.IsZero() || now.Before(w.deadline) {
			continue
		}

		var dropped int64
	drain:
		for {
			select {
			case msg, ok := <-w.nr.inbox.Chan():
				if !ok {
					break drain
				}
				w.eh.Nack(msg.ID, node.ErrorKindFatal, true)
				dropped++
			default:
				break drain
			}
		}

		if dropped > 0 {
			w.eh.MetricSet("core").Inc("dropped_shutdown", dropped)
			c.log.Warnf("node %s exceeded shutdown deadline with %d message(s) queued, forcing Failed", w.nr.id, dropped)
			c.finishWorker(w, node.PhaseFailed)
		} else {
			c.finishWorker(w, node.PhaseStopped)
		}
		*liveWorkers--
		disableWorkerCases(cases, idx)
	}
}

// reportMetrics drains every metric set this core owns through the
// wired Reporter, a no-op when none is wired. It copies the current
// *telemetry.Set pointers under metricsMu and calls Report on each
// outside the lock, since Report's channel send can legitimately block
// until ctx is done and must not hold up MetricSets readers.
func (c *Core) reportMetrics(ctx context.Context) {
	if c.reporter == nil {
		return
	}
	c.metricsMu.Lock()
	sets := make([]*telemetry.Set, 0, len(c.metricSets))
	for _, s := range c.metricSets {
		sets = append(sets, s)
	}
	c.metricsMu.Unlock()

	for _, s := range sets {
		c.reporter.Report(ctx, s)
	}
}

// Shutdown broadcasts Shutdown{deadline} to every node this core hosts
// and waits for Run's own deadline-aware draining (checkDeadlines) to
// bring every node to a terminal phase, which happens within one
// TimerInterval of deadline. It does not itself enforce the deadline —
// that responsibility lives in the single cooperative loop that owns
// every node's phase, per §4.5 step 4 — it only waits for that to
// finish and then tears down the control channel.
func (c *Core) Shutdown(ctx context.Context, deadline time.Time) {
	c.control.Publish(node.Control{Kind: node.ControlShutdown, Deadline: deadline})

	select {
	case <-c.allDone:
	case <-ctx.Done():
		c.log.Warnf("shutdown context cancelled before every node reached a terminal phase: %v", ctx.Err())
	}
	c.control.Close()
}

func (c *Core) reportPhase(key graph.PipelineKey, nr *nodeRuntime, from, to node.Phase) {
	if from == to {
		return
	}
	if !node.CanTransition(from, to) {
		to = node.PhaseFailed
	}
	c.observed.Report(observedstate.Event{
		Timestamp:   c.clock(),
		PipelineKey: key,
		CoreID:      c.ID,
		NodeUnique:  nr.unique,
		PhaseFrom:   from,
		PhaseTo:     to,
	})
}
