/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"encoding/json"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/collector/pdata/plog/plogotlp"

	"github.com/otap-dataflow/dataflow-go/pkg/datagen"
	"github.com/otap-dataflow/dataflow-go/pkg/otel/assert"
)

// TestLogsRoundTripFromGenerator mirrors the teacher's
// TestLogsEncodingDecoding: a synthetic dataset goes OTLP -> OTAP ->
// OTLP and the two OTLP requests must be semantically equivalent.
func TestLogsRoundTripFromGenerator(t *testing.T) {
	t.Parallel()
	pool := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer pool.AssertSize(t, 0)

	entropy := datagen.NewTestEntropy()
	logsGen := datagen.NewLogsGenerator(entropy, entropy.NewStandardResourceAttributes(), entropy.NewStandardInstrumentationScopes())
	expected := plogotlp.NewExportRequestFromLogs(logsGen.Generate(200, 100))

	data, err := expected.MarshalProto()
	require.NoError(t, err)

	recs, err := FromOTLPLogBytes(data, pool)
	require.NoError(t, err)
	require.NoError(t, ValidateIntegrity(recs))

	out, err := ToOTLPLogBytes(recs)
	require.NoError(t, err)
	recs.Release()

	actualReq := plogotlp.NewExportRequest()
	require.NoError(t, actualReq.UnmarshalProto(out))

	assert.Equiv(assert.NewStdUnitTest(t), []json.Marshaler{expected}, []json.Marshaler{actualReq})
}

// TestLogsRoundTripSharesResourceAndScopeIDs checks that two log
// records under the same resource/scope collapse onto one resource_id
// and one scope_id rather than duplicating the resource/scope rows.
func TestLogsRoundTripSharesResourceAndScopeIDs(t *testing.T) {
	t.Parallel()
	pool := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer pool.AssertSize(t, 0)

	ld := plog.NewLogs()
	rl := ld.ResourceLogs().AppendEmpty()
	rl.Resource().Attributes().PutStr("service.name", "svc")
	sl := rl.ScopeLogs().AppendEmpty()
	sl.Scope().SetName("scope-a")
	sl.LogRecords().AppendEmpty().Body().SetStr("first")
	sl.LogRecords().AppendEmpty().Body().SetStr("second")

	recs, err := logsToOtap(ld, pool)
	require.NoError(t, err)

	resBatch, ok := recs.Get(ResourceAttrs)
	require.True(t, ok)
	require.EqualValues(t, 1, resBatch.Record.NumRows())

	scopeBatch, ok := recs.Get(ScopeAttrs)
	require.True(t, ok)
	require.EqualValues(t, 0, scopeBatch.Record.NumRows())

	logsBatch, ok := recs.Get(Logs)
	require.True(t, ok)
	require.EqualValues(t, 2, logsBatch.Record.NumRows())
	require.Equal(t, columnU32(logsBatch.Record, "resource_id", 0), columnU32(logsBatch.Record, "resource_id", 1))

	recs.Release()
}

func TestFromOTLPLogBytesRejectsMalformedProto(t *testing.T) {
	t.Parallel()
	_, err := FromOTLPLogBytes([]byte{0xff, 0xff, 0xff}, memory.NewGoAllocator())
	require.Error(t, err)
}
