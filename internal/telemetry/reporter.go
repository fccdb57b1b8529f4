/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package telemetry

import (
	"context"
)

// Reporter sends metric snapshots to a collector over a bounded
// channel, resetting the local counters only once a send succeeds —
// grounded on original_source's
// rust/otap-dataflow/crates/telemetry/src/reporter.rs MetricsReporter,
// whose report() method skips sending when nothing changed and keeps
// the accumulated counters on a failed/timed-out send so no data is
// lost. The controller creates one Reporter per process and hands it to
// every core (Core.SetReporter); each core reports every Set it owns
// through it.
type Reporter struct {
	out chan<- Snapshot
}

// NewReporter wires a Reporter to send snapshots on out. The channel
// is expected to be bounded and drained by a metrics collector
// goroutine running outside any core's cooperative loop.
func NewReporter(out chan<- Snapshot) *Reporter {
	return &Reporter{out: out}
}

// Report sends set's snapshot if it has any non-zero counter/up-down
// value, resetting set only when the send actually lands before ctx
// is done. A full collector channel (ctx deadline/cancel) leaves set
// untouched — exactly reporter.rs's behavior of not losing counters on
// a failed send.
func (r *Reporter) Report(ctx context.Context, set *Set) {
	snap := set.Snapshot()
	if !snap.HasNonZero {
		return
	}
	select {
	case r.out <- snap:
		set.Reset()
	case <-ctx.Done():
	}
}
