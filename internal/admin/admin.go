/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package admin exposes the process's /status, /livez, /readyz HTTP
// surface, grounded on original_source's
// rust/otap-dataflow/crates/admin/src/health.rs routes, with the
// fuller /readyz contract SPEC_FULL.md §C adopts (Degraded counts as
// not ready, not just Starting/Stopping).
package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/observedstate"
	"github.com/otap-dataflow/dataflow-go/internal/telemetry"
)

// StatusSource is the read-only slice of controller.Controller this
// package needs; kept as an interface so admin has no import-cycle
// dependency on internal/controller.
type StatusSource interface {
	Status() map[graph.PipelineKey]observedstate.PipelineStatus
	StatusOne(key graph.PipelineKey) (observedstate.PipelineStatus, bool)
	Ready() bool
	Metrics() map[string]telemetry.Snapshot
}

// Server hosts the health/status endpoints over HTTP.
type Server struct {
	src StatusSource
	mux *http.ServeMux
	now func() time.Time
}

// New builds a Server backed by src.
func New(src StatusSource) *Server {
	s := &Server{src: src, mux: http.NewServeMux(), now: time.Now}
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("GET /pipeline-groups/{gid}/pipelines/{pid}/status", s.handlePipelineStatus)
	s.mux.HandleFunc("/metrics", s.handleMetrics)
	s.mux.HandleFunc("/livez", s.handleLivez)
	s.mux.HandleFunc("/readyz", s.handleReadyz)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// pipelineStatusView is PipelineStatus reshaped for JSON: PipelineKey
// is a struct and can't be a JSON object key directly, so it's
// flattened into a keyed slice; PhaseSinceHuman gives an operator
// glancing at /status a relative age ("3m ago") beside the exact
// timestamp.
type pipelineStatusView struct {
	Pipeline        string                    `json:"pipeline"`
	Phase           string                    `json:"phase"`
	PhaseSince      time.Time                 `json:"phase_since"`
	PhaseSinceHuman string                    `json:"phase_since_human"`
	PerCore         map[string]coreStatusView `json:"per_core"`
}

type coreStatusView struct {
	Phase      string            `json:"phase"`
	Since      time.Time         `json:"since"`
	NodePhases map[string]string `json:"node_phases"`
}

type statusResponse struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Ready       bool                 `json:"ready"`
	Pipelines   []pipelineStatusView `json:"pipelines"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.src.Status()
	resp := statusResponse{
		GeneratedAt: s.now(),
		Ready:       s.src.Ready(),
		Pipelines:   make([]pipelineStatusView, 0, len(snapshot)),
	}
	for key, ps := range snapshot {
		resp.Pipelines = append(resp.Pipelines, s.view(key, ps))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) view(key graph.PipelineKey, ps observedstate.PipelineStatus) pipelineStatusView {
	view := pipelineStatusView{
		Pipeline:        key.String(),
		Phase:           ps.Phase.String(),
		PhaseSince:      ps.PhaseSince,
		PhaseSinceHuman: humanize.Time(ps.PhaseSince),
		PerCore:         make(map[string]coreStatusView, len(ps.PerCore)),
	}
	for coreID, cs := range ps.PerCore {
		nodePhases := make(map[string]string, len(cs.NodePhases))
		for nu, phase := range cs.NodePhases {
			nodePhases[string(nu.ID)] = phase.String()
		}
		view.PerCore[strconv.Itoa(int(coreID))] = coreStatusView{
			Phase:      cs.Phase.String(),
			Since:      cs.Since,
			NodePhases: nodePhases,
		}
	}
	return view
}

// handlePipelineStatus answers §6's single-pipeline lookup: the JSON
// view of one pipeline's status, or a bare JSON null (still 200) if
// the gid/pid pair names a pipeline the store has never observed.
func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	key := graph.PipelineKey{Group: r.PathValue("gid"), ID: r.PathValue("pid")}
	w.Header().Set("Content-Type", "application/json")

	ps, ok := s.src.StatusOne(key)
	if !ok {
		_ = json.NewEncoder(w).Encode(nil)
		return
	}
	_ = json.NewEncoder(w).Encode(s.view(key, ps))
}

// handleMetrics answers with every metric set's last reported
// snapshot, keyed by "nodeID/setName" — the §5 metrics reporter
// channel's contents, surfaced for operators without a full OTel SDK
// metrics pipeline (SPEC_FULL.md §B).
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.src.Metrics())
}

// handleLivez always answers 200 while the process is up to serve
// HTTP at all; liveness never depends on pipeline phase.
func (s *Server) handleLivez(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleReadyz answers 503 while any pipeline is not Running —
// Starting, Stopping, or Degraded all count as not ready, the fuller
// contract SPEC_FULL.md §C adopts over the original's always-200 stub.
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !s.src.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
