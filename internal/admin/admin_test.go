/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/node"
	"github.com/otap-dataflow/dataflow-go/internal/observedstate"
	"github.com/otap-dataflow/dataflow-go/internal/telemetry"
)

type fakeSource struct {
	status  map[graph.PipelineKey]observedstate.PipelineStatus
	ready   bool
	metrics map[string]telemetry.Snapshot
}

func (f fakeSource) Status() map[graph.PipelineKey]observedstate.PipelineStatus { return f.status }
func (f fakeSource) Ready() bool                                                { return f.ready }

func (f fakeSource) StatusOne(key graph.PipelineKey) (observedstate.PipelineStatus, bool) {
	ps, ok := f.status[key]
	return ps, ok
}

func (f fakeSource) Metrics() map[string]telemetry.Snapshot { return f.metrics }

func TestHandleLivezAlwaysOK(t *testing.T) {
	t.Parallel()
	srv := New(fakeSource{ready: false})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleReadyzReflectsReady(t *testing.T) {
	t.Parallel()

	notReady := New(fakeSource{ready: false})
	rec := httptest.NewRecorder()
	notReady.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ready := New(fakeSource{ready: true})
	rec = httptest.NewRecorder()
	ready.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleStatusShapesSnapshot(t *testing.T) {
	t.Parallel()

	key := graph.PipelineKey{Group: "tenant-a", ID: "pipeline-1"}
	since := time.Now().Add(-5 * time.Minute)
	src := fakeSource{
		ready: true,
		status: map[graph.PipelineKey]observedstate.PipelineStatus{
			key: {
				Phase:      node.PhaseRunning,
				PhaseSince: since,
				PerCore: map[observedstate.CoreID]observedstate.CoreStatus{
					0: {
						Phase: node.PhaseRunning,
						Since: since,
						NodePhases: map[graph.NodeUnique]node.Phase{
							{ID: "recv", Index: 0}: node.PhaseRunning,
						},
					},
				},
			},
		},
	}

	srv := New(src)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Ready)
	require.Len(t, resp.Pipelines, 1)

	p := resp.Pipelines[0]
	require.Equal(t, key.String(), p.Pipeline)
	require.Equal(t, "Running", p.Phase)
	require.NotEmpty(t, p.PhaseSinceHuman)

	core, ok := p.PerCore["0"]
	require.True(t, ok)
	require.Equal(t, "Running", core.Phase)
	require.Equal(t, "Running", core.NodePhases["recv"])
}

func TestHandlePipelineStatusKnownAndUnknown(t *testing.T) {
	t.Parallel()

	key := graph.PipelineKey{Group: "tenant-a", ID: "pipeline-1"}
	since := time.Now().Add(-time.Minute)
	src := fakeSource{
		ready: true,
		status: map[graph.PipelineKey]observedstate.PipelineStatus{
			key: {Phase: node.PhaseRunning, PhaseSince: since, PerCore: map[observedstate.CoreID]observedstate.CoreStatus{}},
		},
	}
	srv := New(src)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pipeline-groups/tenant-a/pipelines/pipeline-1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var view pipelineStatusView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, key.String(), view.Pipeline)
	require.Equal(t, "Running", view.Phase)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pipeline-groups/tenant-a/pipelines/unknown/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "null\n", rec.Body.String())
}

func TestHandleMetricsServesLatestSnapshots(t *testing.T) {
	t.Parallel()

	src := fakeSource{
		ready: true,
		metrics: map[string]telemetry.Snapshot{
			"recv/fake_receiver": {NodeName: "recv/fake_receiver", Counters: map[string]int64{"received": 3}},
		},
	}
	srv := New(src)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snaps map[string]telemetry.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	require.Equal(t, int64(3), snaps["recv/fake_receiver"].Counters["received"])
}
