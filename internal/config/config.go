/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package config loads the pipeline configuration document (§3, §6):
// tenants of pipelines of nodes, from YAML or JSON, rejecting unknown
// fields, and compiles each PipelineConfig into a validated
// internal/graph.Graph. The byte-level parsing of either encoding
// beyond "deny unknown fields" is a collaborator's concern, out of
// scope per spec.md §1 — this package only builds and validates the
// struct the real loader would hand to the graph model.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/pkg/werror"
)

// PipelineType selects which pdata shape a pipeline's edges carry.
type PipelineType string

const (
	PipelineTypeOtlp PipelineType = "otlp"
	PipelineTypeOtap PipelineType = "otap"
)

// Edge names one destination of an out-port.
type Edge struct {
	Dest string `yaml:"dest" json:"dest"`
}

// NodeConfig is one node as given in a pipeline document.
type NodeConfig struct {
	Kind             string            `yaml:"kind" json:"kind"`
	URN              string            `yaml:"urn" json:"urn"`
	Config           json.RawMessage   `yaml:"config" json:"config"`
	OutPorts         map[string][]Edge `yaml:"out_ports,omitempty" json:"out_ports,omitempty"`
	DispatchStrategy string            `yaml:"dispatch_strategy,omitempty" json:"dispatch_strategy,omitempty"`
}

// PipelineConfig is one pipeline: its wire type and node set.
type PipelineConfig struct {
	Type  PipelineType          `yaml:"type" json:"type"`
	Nodes map[string]NodeConfig `yaml:"nodes" json:"nodes"`
}

// TenantConfig groups pipelines under a tenant id.
type TenantConfig struct {
	Pipelines map[string]PipelineConfig `yaml:"pipelines" json:"pipelines"`
}

// Document is the whole configuration file: an optional human
// description plus a set of tenants.
type Document struct {
	Description string                  `yaml:"description,omitempty" json:"description,omitempty"`
	Tenants     map[string]TenantConfig `yaml:"tenants" json:"tenants"`
}

// LoadError wraps a failure parsing or validating a configuration
// document; per §7 it is a ConfigInvalid failure: the caller must
// abort with a message and never partially start.
type LoadError struct {
	Path  string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Cause)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// Load reads and parses path, selecting YAML or JSON by extension
// (.yaml/.yml vs everything else), rejecting unknown fields.
func Load(path string, data []byte) (*Document, error) {
	var doc Document
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, &LoadError{Path: path, Cause: werror.Wrap(err)}
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, &LoadError{Path: path, Cause: werror.Wrap(err)}
		}
	}
	if len(doc.Tenants) == 0 {
		return nil, &LoadError{Path: path, Cause: fmt.Errorf("document has no tenants")}
	}
	return &doc, nil
}

// PipelineKeyFor returns the graph.PipelineKey for a tenant/pipeline id
// pair, matching §3's "pipeline group + pipeline id" key shape.
func PipelineKeyFor(tenant, pipelineID string) graph.PipelineKey {
	return graph.PipelineKey{Group: tenant, ID: pipelineID}
}

func dispatchStrategy(s string) (graph.DispatchStrategy, error) {
	switch s {
	case "", "broadcast":
		return graph.DispatchBroadcast, nil
	case "round_robin":
		return graph.DispatchRoundRobin, nil
	case "least_loaded":
		return graph.DispatchLeastLoaded, nil
	case "random":
		return graph.DispatchRandom, nil
	default:
		return 0, fmt.Errorf("unknown dispatch_strategy %q", s)
	}
}

func nodeKind(s string) (graph.NodeKind, error) {
	switch s {
	case "receiver":
		return graph.KindReceiver, nil
	case "processor":
		return graph.KindProcessor, nil
	case "exporter":
		return graph.KindExporter, nil
	default:
		return 0, fmt.Errorf("unknown node kind %q", s)
	}
}

// signalFor returns the in/out signal implied by a pipeline's wire
// type; every node in a pipeline shares the same signal discipline
// (no fan-in/out across OTLP and OTAP within one pipeline).
func signalFor(pt PipelineType) (graph.Signal, error) {
	switch pt {
	case PipelineTypeOtlp:
		return graph.SignalLogs, nil
	case PipelineTypeOtap:
		return graph.SignalOtapLogs, nil
	default:
		return 0, fmt.Errorf("unknown pipeline type %q", pt)
	}
}

// BuildGraph compiles a PipelineConfig into a validated graph.Graph.
// The returned graph's nodes carry the resolved Kind, URN, opaque
// Config, and Dispatch strategy; edges are validated for duplicate
// out-ports, unknown destinations, signal agreement, and acyclicity.
func BuildGraph(pc PipelineConfig) (*graph.Graph, error) {
	sig, err := signalFor(pc.Type)
	if err != nil {
		return nil, werror.Wrap(err)
	}

	defs := make([]graph.NodeDef, 0, len(pc.Nodes))
	for id, nc := range pc.Nodes {
		kind, err := nodeKind(nc.Kind)
		if err != nil {
			return nil, werror.WrapWithContext(err, map[string]interface{}{"node": id})
		}
		strategy, err := dispatchStrategy(nc.DispatchStrategy)
		if err != nil {
			return nil, werror.WrapWithContext(err, map[string]interface{}{"node": id})
		}

		outPorts := make(map[graph.PortName][]graph.Edge, len(nc.OutPorts))
		for port, edges := range nc.OutPorts {
			ges := make([]graph.Edge, 0, len(edges))
			for _, e := range edges {
				ges = append(ges, graph.Edge{Dest: graph.NodeId(e.Dest)})
			}
			outPorts[graph.PortName(port)] = ges
		}

		defs = append(defs, graph.NodeDef{
			ID:        graph.NodeId(id),
			Kind:      kind,
			URN:       nc.URN,
			Config:    []byte(nc.Config),
			InSignal:  sig,
			OutSignal: sig,
			OutPorts:  outPorts,
			Dispatch:  strategy,
		})
	}

	g, err := graph.Build(defs)
	if err != nil {
		return nil, werror.Wrap(err)
	}
	if err := g.Validate(); err != nil {
		return nil, werror.Wrap(err)
	}
	if err := validateRoleCoverage(g, defs); err != nil {
		return nil, werror.Wrap(err)
	}
	return g, nil
}

// validateRoleCoverage enforces §3's "at least one receiver and one
// exporter per pipeline" invariant, which graph.Validate itself does
// not check (it has no notion of node kinds).
func validateRoleCoverage(g *graph.Graph, defs []graph.NodeDef) error {
	var hasReceiver, hasExporter bool
	for _, d := range defs {
		switch d.Kind {
		case graph.KindReceiver:
			hasReceiver = true
		case graph.KindExporter:
			hasExporter = true
		}
	}
	if !hasReceiver {
		return fmt.Errorf("pipeline has no receiver")
	}
	if !hasExporter {
		return fmt.Errorf("pipeline has no exporter")
	}
	return nil
}
