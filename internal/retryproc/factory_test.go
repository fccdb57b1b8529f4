/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package retryproc

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
	require.Equal(t, DefaultPolicy(), p.policy)
}

func TestNewOverridesOnlyGivenFields(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"max_attempts": 5, "initial_backoff_ms": 20}`)
	v, err := New(graph.NodeUnique{}, raw, node.CoreContext{})
	require.NoError(t, err)
	p := v.(*Processor)

	require.Equal(t, 5, p.policy.MaxAttempts)
	require.Equal(t, 20*time.Millisecond, p.policy.InitialBackoff)
	require.Equal(t, DefaultPolicy().BackoffMultiplier, p.policy.BackoffMultiplier)
	require.Equal(t, DefaultPolicy().MaxBackoff, p.policy.MaxBackoff)
}

func TestNewRejectsMalformedJSON(t *testing.T) {
	t.Parallel()
	_, err := New(graph.NodeUnique{}, []byte(`{not json`), node.CoreContext{})
	require.Error(t, err)
}
