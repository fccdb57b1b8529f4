/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const yamlDoc = `
description: test pipeline
tenants:
  tenant-a:
    pipelines:
      p1:
        type: otap
        nodes:
          recv:
            kind: receiver
            urn: fake_receiver
            out_ports:
              default:
                - dest: exp
          exp:
            kind: exporter
            urn: otlp_grpc_exporter
`

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	doc, err := Load("pipeline.yaml", []byte(yamlDoc))
	require.NoError(t, err)
	require.Equal(t, "test pipeline", doc.Description)
	require.Contains(t, doc.Tenants, "tenant-a")
	require.Contains(t, doc.Tenants["tenant-a"].Pipelines, "p1")
}

func TestLoadYAMLUnknownFieldRejected(t *testing.T) {
	t.Parallel()
	bad := yamlDoc + "\nbogus_top_level_key: true\n"
	_, err := Load("pipeline.yaml", []byte(bad))
	require.Error(t, err)
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()
	doc, err := Load("pipeline.json", []byte(`{
		"tenants": {
			"tenant-a": {
				"pipelines": {
					"p1": {
						"type": "otlp",
						"nodes": {
							"recv": {"kind": "receiver", "urn": "fake_receiver"},
							"exp": {"kind": "exporter", "urn": "otlp_grpc_exporter"}
						}
					}
				}
			}
		}
	}`))
	require.NoError(t, err)
	require.Equal(t, PipelineTypeOtlp, doc.Tenants["tenant-a"].Pipelines["p1"].Type)
}

func TestLoadJSONUnknownFieldRejected(t *testing.T) {
	t.Parallel()
	_, err := Load("pipeline.json", []byte(`{"tenants": {}, "bogus": 1}`))
	require.Error(t, err)
}

func TestLoadEmptyTenantsRejected(t *testing.T) {
	t.Parallel()
	_, err := Load("pipeline.json", []byte(`{"tenants": {}}`))
	require.Error(t, err)
}

func TestPipelineKeyFor(t *testing.T) {
	t.Parallel()
	key := PipelineKeyFor("tenant-a", "p1")
	require.Equal(t, "tenant-a/p1", key.String())
}

func TestBuildGraphHappyPath(t *testing.T) {
	t.Parallel()
	doc, err := Load("pipeline.yaml", []byte(yamlDoc))
	require.NoError(t, err)

	g, err := BuildGraph(doc.Tenants["tenant-a"].Pipelines["p1"])
	require.NoError(t, err)
	require.NoError(t, g.Validate())
}

func TestBuildGraphMissingExporterRejected(t *testing.T) {
	t.Parallel()
	pc := PipelineConfig{
		Type: PipelineTypeOtap,
		Nodes: map[string]NodeConfig{
			"recv": {Kind: "receiver", URN: "fake_receiver"},
		},
	}
	_, err := BuildGraph(pc)
	require.Error(t, err)
}

func TestBuildGraphUnknownDispatchStrategyRejected(t *testing.T) {
	t.Parallel()
	pc := PipelineConfig{
		Type: PipelineTypeOtap,
		Nodes: map[string]NodeConfig{
			"recv": {Kind: "receiver", URN: "fake_receiver", DispatchStrategy: "sticky"},
			"exp":  {Kind: "exporter", URN: "otlp_grpc_exporter"},
		},
	}
	_, err := BuildGraph(pc)
	require.Error(t, err)
}
