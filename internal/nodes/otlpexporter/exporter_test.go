/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otlpexporter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/node"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := parseConfig(nil)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:4317", cfg.Endpoint)
	require.Equal(t, 5*time.Second, cfg.timeout())
	require.Nil(t, cfg.callOptions())
}

func TestParseConfigOverride(t *testing.T) {
	t.Parallel()
	cfg, err := parseConfig([]byte(`{"endpoint":"collector:4317","timeout_ms":250,"compression":"zstdarrow1"}`))
	require.NoError(t, err)
	require.Equal(t, "collector:4317", cfg.Endpoint)
	require.Equal(t, 250*time.Millisecond, cfg.timeout())
	require.Len(t, cfg.callOptions(), 1)
}

func TestParseConfigRejectsMalformedJSON(t *testing.T) {
	t.Parallel()
	_, err := parseConfig([]byte(`{not json`))
	require.Error(t, err)
}

func TestCallOptionsIdentityIsNoOption(t *testing.T) {
	t.Parallel()
	require.Nil(t, Config{Compression: "identity"}.callOptions())
	require.Nil(t, Config{}.callOptions())
}

func TestClassifyErrPassesThroughNil(t *testing.T) {
	t.Parallel()
	require.NoError(t, classifyErr(nil))
}

func TestClassifyErrTreatsOKStatusAsNil(t *testing.T) {
	t.Parallel()
	err := status.Error(codes.OK, "fine")
	require.NoError(t, classifyErr(err))
}

func TestClassifyErrPassesThroughRealFailure(t *testing.T) {
	t.Parallel()
	err := status.Error(codes.Unavailable, "down")
	require.Equal(t, err, classifyErr(err))
}

func TestHandleControlShutdownClosesConnIfDialed(t *testing.T) {
	t.Parallel()
	v, err := New(graph.NodeUnique{ID: "exp"}, nil, node.CoreContext{})
	require.NoError(t, err)
	e := v.(*Exporter)

	// No connection dialed yet: Shutdown must be a no-op, not a panic.
	require.NoError(t, e.HandleControl(context.Background(), node.Control{Kind: node.ControlShutdown}, nil))

	require.NoError(t, e.ensureConn())
	require.NoError(t, e.HandleControl(context.Background(), node.Control{Kind: node.ControlShutdown}, nil))
}

func TestHandleControlTimerTickIsNoOp(t *testing.T) {
	t.Parallel()
	v, err := New(graph.NodeUnique{ID: "exp"}, nil, node.CoreContext{})
	require.NoError(t, err)
	e := v.(*Exporter)
	require.NoError(t, e.HandleControl(context.Background(), node.Control{Kind: node.ControlTimerTick}, nil))
}
