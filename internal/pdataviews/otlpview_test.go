/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package pdataviews

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/plogotlp"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
)

func buildLogsBytes(t *testing.T, resourceCount int, schemaURL string) []byte {
	t.Helper()
	logs := plog.NewLogs()
	for i := 0; i < resourceCount; i++ {
		rl := logs.ResourceLogs().AppendEmpty()
		if i == 0 {
			rl.SetSchemaUrl(schemaURL)
		}
		sl := rl.ScopeLogs().AppendEmpty()
		sl.LogRecords().AppendEmpty().Body().SetStr("hello")
	}
	data, err := plogotlp.NewExportRequestFromLogs(logs).MarshalProto()
	require.NoError(t, err)
	return data
}

func TestPeekResourceCount(t *testing.T) {
	t.Parallel()
	data := buildLogsBytes(t, 3, "https://example.com/schema")

	count, err := PeekResourceCount(data)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestPeekSchemaURL(t *testing.T) {
	t.Parallel()
	data := buildLogsBytes(t, 2, "https://example.com/schema")

	url, found, err := PeekSchemaURL(data)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "https://example.com/schema", url)
}

func TestPeekSchemaURLEmptyMessage(t *testing.T) {
	t.Parallel()
	url, found, err := PeekSchemaURL(nil)
	require.NoError(t, err)
	require.False(t, found)
	require.Empty(t, url)
}

func TestSignalSupportsProtoPeek(t *testing.T) {
	t.Parallel()
	require.True(t, SignalSupportsProtoPeek(graph.SignalLogs))
	require.True(t, SignalSupportsProtoPeek(graph.SignalTraces))
	require.False(t, SignalSupportsProtoPeek(graph.SignalOtapLogs))
}
