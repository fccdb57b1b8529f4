/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package telemetry implements C10: one metric set per node, owned
// exclusively by that node's core (no cross-core writers, so no
// locking is needed on the hot counter/gauge path — only the
// snapshot/reset pair synchronizes, and only with the reporter that
// reads it between core wakes).
//
// Instrument kinds follow original_source's
// rust/otap-dataflow/crates/telemetry design: Counter (cumulative,
// reset only when a snapshot send to the collector succeeds — spec §9's
// open question, resolved here as "cumulative with delta export in the
// collector"), UpDownCounter (cumulative, may go negative, same
// reset-on-flush rule), and Gauge (last-write-wins, never reset).
package telemetry

import (
	"sync/atomic"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/axiomhq/hyperloglog"
)

// Set is one node's metric set: counters, up/down counters, gauges,
// latency histograms, and an approximate distinct-key cardinality
// estimator. Every method is safe to call only from the node's own
// core goroutine except Snapshot/Reset, which the reporter calls from
// the same loop between ticks — there is exactly one writer, ever.
type Set struct {
	name string

	counters   map[string]*int64
	updowns    map[string]*int64
	gauges     map[string]*int64
	histograms map[string]*hdrhistogram.Histogram
	sketches   map[string]*hyperloglog.Sketch
}

// NewSet returns an empty metric set named for its owning node.
func NewSet(name string) *Set {
	return &Set{
		name:       name,
		counters:   make(map[string]*int64),
		updowns:    make(map[string]*int64),
		gauges:     make(map[string]*int64),
		histograms: make(map[string]*hdrhistogram.Histogram),
		sketches:   make(map[string]*hyperloglog.Sketch),
	}
}

func (s *Set) Name() string { return s.name }

func (s *Set) slot(m map[string]*int64, name string) *int64 {
	p, ok := m[name]
	if !ok {
		var z int64
		p = &z
		m[name] = p
	}
	return p
}

// Inc adds delta to a cumulative counter. A negative delta is legal
// only for an UpDownCounter; Inc always treats name as a plain
// Counter — use UpDown for the signed instrument.
func (s *Set) Inc(name string, delta int64) {
	atomic.AddInt64(s.slot(s.counters, name), delta)
}

// UpDown adds delta (positive or negative) to an UpDownCounter.
func (s *Set) UpDown(name string, delta int64) {
	atomic.AddInt64(s.slot(s.updowns, name), delta)
}

// Set assigns value to a Gauge, overwriting any previous value.
func (s *Set) Set(name string, value int64) {
	atomic.StoreInt64(s.slot(s.gauges, name), value)
}

// Histogram returns (creating if absent) the latency histogram named
// name, tracking values from 1 (microsecond resolution, caller's
// choice of unit) to 1 hour's worth of microseconds with 3 significant
// digits, matching HdrHistogram's standard low-overhead configuration.
func (s *Set) Histogram(name string) *hdrhistogram.Histogram {
	h, ok := s.histograms[name]
	if !ok {
		h = hdrhistogram.New(1, 3600_000_000, 3)
		s.histograms[name] = h
	}
	return h
}

// RecordLatency records a duration (in microseconds) into the named
// histogram. No node in this module records into it; the OTLP exporter
// reports its last call latency as the last_call_latency_us gauge.
func (s *Set) RecordLatency(name string, microseconds int64) {
	_ = s.Histogram(name).RecordValue(microseconds)
}

// CardinalitySketch returns (creating if absent) the HyperLogLog
// sketch named name, tracking the approximate number of distinct values
// inserted into it. internal/otap/transport.go keeps one sketch per
// string column ("PayloadType.column") for its dictionary-overflow
// heuristic.
func (s *Set) CardinalitySketch(name string) *hyperloglog.Sketch {
	sk, ok := s.sketches[name]
	if !ok {
		sk = hyperloglog.New16()
		s.sketches[name] = sk
	}
	return sk
}

// ObserveKey inserts key (any string value, e.g. one cell of a string
// column) into the named cardinality sketch.
func (s *Set) ObserveKey(name, key string) {
	s.CardinalitySketch(name).Insert([]byte(key))
}

// Snapshot is a point-in-time copy of every counter/up-down/gauge
// value plus estimated cardinalities, suitable for sending to the
// metrics collector or embedding in a node's TerminalState.
type Snapshot struct {
	NodeName    string
	Counters    map[string]int64
	UpDowns     map[string]int64
	Gauges      map[string]int64
	Cardinality map[string]uint64
	HasNonZero  bool
}

// Snapshot copies every instrument's current value. It does not reset
// anything — callers decide whether to Reset after a successful flush,
// matching reporter.rs's report(): the values are kept on send failure
// to avoid losing data.
func (s *Set) Snapshot() Snapshot {
	snap := Snapshot{
		NodeName:    s.name,
		Counters:    make(map[string]int64, len(s.counters)),
		UpDowns:     make(map[string]int64, len(s.updowns)),
		Gauges:      make(map[string]int64, len(s.gauges)),
		Cardinality: make(map[string]uint64, len(s.sketches)),
	}
	for k, v := range s.counters {
		val := atomic.LoadInt64(v)
		snap.Counters[k] = val
		if val != 0 {
			snap.HasNonZero = true
		}
	}
	for k, v := range s.updowns {
		val := atomic.LoadInt64(v)
		snap.UpDowns[k] = val
		if val != 0 {
			snap.HasNonZero = true
		}
	}
	for k, v := range s.gauges {
		snap.Gauges[k] = atomic.LoadInt64(v)
	}
	for k, sk := range s.sketches {
		snap.Cardinality[k] = sk.Estimate()
	}
	return snap
}

// Reset zeroes every Counter and UpDownCounter. Gauges are untouched
// (last-write-wins semantics never reset); histograms and sketches are
// untouched too — they describe distributions/cardinality over the
// node's whole lifetime, not a flush window.
func (s *Set) Reset() {
	for _, v := range s.counters {
		atomic.StoreInt64(v, 0)
	}
	for _, v := range s.updowns {
		atomic.StoreInt64(v, 0)
	}
}
