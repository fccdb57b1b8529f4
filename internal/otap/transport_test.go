/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"encoding/json"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/plog/plogotlp"

	"github.com/otap-dataflow/dataflow-go/internal/telemetry"
	"github.com/otap-dataflow/dataflow-go/pkg/datagen"
	"github.com/otap-dataflow/dataflow-go/pkg/otel/assert"
)

// TestTransportOptimizationsRoundTrip applies and then undoes the
// transport optimizations on a generated logs bundle and checks the
// resulting OTLP is semantically equivalent to the original.
func TestTransportOptimizationsRoundTrip(t *testing.T) {
	t.Parallel()
	pool := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer pool.AssertSize(t, 0)

	entropy := datagen.NewTestEntropy()
	logsGen := datagen.NewLogsGenerator(entropy, entropy.NewStandardResourceAttributes(), entropy.NewStandardInstrumentationScopes())
	expected := plogotlp.NewExportRequestFromLogs(logsGen.Generate(300, 100))
	data, err := expected.MarshalProto()
	require.NoError(t, err)

	recs, err := FromOTLPLogBytes(data, pool)
	require.NoError(t, err)

	ApplyTransportOptimizations(recs, pool, nil)
	UndoTransportOptimizations(recs, pool)
	require.NoError(t, ValidateIntegrity(recs))

	out, err := ToOTLPLogBytes(recs)
	require.NoError(t, err)
	recs.Release()

	actualReq := plogotlp.NewExportRequest()
	require.NoError(t, actualReq.UnmarshalProto(out))

	assert.Equiv(assert.NewStdUnitTest(t), []json.Marshaler{expected}, []json.Marshaler{actualReq})
}

// TestApplyTransportOptimizationsDictionaryEncodesStringColumns checks
// that a string column becomes an Arrow dictionary after optimizing
// with a non-nil telemetry.Set supplied.
func TestApplyTransportOptimizationsDictionaryEncodesStringColumns(t *testing.T) {
	t.Parallel()
	pool := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer pool.AssertSize(t, 0)

	entropy := datagen.NewTestEntropy()
	logsGen := datagen.NewLogsGenerator(entropy, entropy.NewStandardResourceAttributes(), entropy.NewStandardInstrumentationScopes())
	req := plogotlp.NewExportRequestFromLogs(logsGen.Generate(50, 100))
	data, err := req.MarshalProto()
	require.NoError(t, err)

	recs, err := FromOTLPLogBytes(data, pool)
	require.NoError(t, err)

	metrics := telemetry.NewSet("test")
	ApplyTransportOptimizations(recs, pool, metrics)

	logsBatch, ok := recs.Get(Logs)
	require.True(t, ok)
	found := false
	for _, f := range logsBatch.Record.Schema().Fields() {
		if f.Name == "severity_text" {
			require.Equal(t, arrow.DICTIONARY, f.Type.ID())
			found = true
		}
	}
	require.True(t, found)

	UndoTransportOptimizations(recs, pool)
	recs.Release()
}

func TestDeltaEncodeDecodeUint32RoundTrips(t *testing.T) {
	t.Parallel()
	mem := memory.NewGoAllocator()

	b := array.NewUint32Builder(mem)
	defer b.Release()
	for _, v := range []uint32{5, 5, 7, 100, 99} {
		b.Append(v)
	}
	col := b.NewArray().(*array.Uint32)
	defer col.Release()

	encoded := deltaEncodeUint32(mem, col).(*array.Uint32)
	defer encoded.Release()
	decoded := deltaDecodeUint32(mem, encoded).(*array.Uint32)
	defer decoded.Release()

	require.Equal(t, col.Uint32Values(), decoded.Uint32Values())
}
