/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetCountersGaugesUpDown(t *testing.T) {
	t.Parallel()
	s := NewSet("node-a")
	s.Inc("received", 3)
	s.Inc("received", 2)
	s.UpDown("in_flight", 5)
	s.UpDown("in_flight", -2)
	s.Set("queue_depth", 7)
	s.Set("queue_depth", 9)

	snap := s.Snapshot()
	require.Equal(t, "node-a", snap.NodeName)
	require.Equal(t, int64(5), snap.Counters["received"])
	require.Equal(t, int64(3), snap.UpDowns["in_flight"])
	require.Equal(t, int64(9), snap.Gauges["queue_depth"])
	require.True(t, snap.HasNonZero)
}

func TestSetResetLeavesGauges(t *testing.T) {
	t.Parallel()
	s := NewSet("node-a")
	s.Inc("received", 5)
	s.UpDown("in_flight", 3)
	s.Set("queue_depth", 9)

	s.Reset()

	snap := s.Snapshot()
	require.Equal(t, int64(0), snap.Counters["received"])
	require.Equal(t, int64(0), snap.UpDowns["in_flight"])
	require.Equal(t, int64(9), snap.Gauges["queue_depth"])
	require.False(t, snap.HasNonZero)
}

func TestSetCardinalitySketch(t *testing.T) {
	t.Parallel()
	s := NewSet("node-a")
	for i := 0; i < 100; i++ {
		s.ObserveKey("attr.key", keyFor(i))
	}
	snap := s.Snapshot()
	// HyperLogLog is approximate; just assert it's in the right ballpark.
	require.InDelta(t, 100, float64(snap.Cardinality["attr.key"]), 15)
}

func TestSetRecordLatency(t *testing.T) {
	t.Parallel()
	s := NewSet("node-a")
	s.RecordLatency("export_us", 1500)
	s.RecordLatency("export_us", 2500)
	h := s.Histogram("export_us")
	require.EqualValues(t, 2, h.TotalCount())
}

func keyFor(i int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := []byte{alphabet[i%36], alphabet[(i/36)%36], alphabet[(i/36/36)%36]}
	return string(b)
}
