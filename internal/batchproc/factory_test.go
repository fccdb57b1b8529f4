/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package batchproc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/node"
)

func TestNewDefaultsOnEmptyConfig(t *testing.T) {
	t.Parallel()
	v, err := New(graph.NodeUnique{}, nil, node.CoreContext{})
	require.NoError(t, err)
	p, ok := v.(*Processor)
	require.True(t, ok)
	require.Equal(t, DefaultConfig(), p.cfg)
}

func TestNewParsesGivenConfig(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"max_rows": 100, "max_bytes": 2048, "max_age_ms": 500}`)
	v, err := New(graph.NodeUnique{}, raw, node.CoreContext{})
	require.NoError(t, err)
	p := v.(*Processor)

	require.Equal(t, 100, p.cfg.MaxRows)
	require.EqualValues(t, 2048, p.cfg.MaxBytes)
	require.Equal(t, 500*time.Millisecond, p.cfg.MaxAge)
}

func TestNewRejectsMalformedJSON(t *testing.T) {
	t.Parallel()
	_, err := New(graph.NodeUnique{}, []byte(`{not json`), node.CoreContext{})
	require.Error(t, err)
}
