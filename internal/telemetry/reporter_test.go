/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReportSendsAndResetsOnSuccess(t *testing.T) {
	t.Parallel()
	out := make(chan Snapshot, 1)
	r := NewReporter(out)

	s := NewSet("node-a")
	s.Inc("received", 5)

	r.Report(context.Background(), s)

	select {
	case snap := <-out:
		require.Equal(t, int64(5), snap.Counters["received"])
	default:
		t.Fatal("expected a snapshot to be sent")
	}
	require.Equal(t, int64(0), s.Snapshot().Counters["received"])
}

func TestReportSkipsZeroSnapshot(t *testing.T) {
	t.Parallel()
	out := make(chan Snapshot, 1)
	r := NewReporter(out)

	s := NewSet("node-a")
	r.Report(context.Background(), s)

	select {
	case <-out:
		t.Fatal("expected no snapshot for an all-zero set")
	default:
	}
}

func TestReportKeepsCountersOnFailedSend(t *testing.T) {
	t.Parallel()
	out := make(chan Snapshot) // unbuffered, no reader
	r := NewReporter(out)

	s := NewSet("node-a")
	s.Inc("received", 5)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	r.Report(ctx, s)

	require.Equal(t, int64(5), s.Snapshot().Counters["received"])
}
