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
	"go.opentelemetry.io/collector/pdata/pmetric/pmetricotlp"

	"github.com/otap-dataflow/dataflow-go/pkg/datagen"
	"github.com/otap-dataflow/dataflow-go/pkg/otel/assert"
)

// TestMetricsRoundTripGaugesAndSums round-trips the two metric types
// this module supports (see DESIGN.md "Simplifications") and expects
// byte-for-byte semantic equivalence, with zero metrics dropped.
func TestMetricsRoundTripGaugesAndSums(t *testing.T) {
	t.Parallel()
	pool := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer pool.AssertSize(t, 0)

	entropy := datagen.NewTestEntropy()
	metricsGen := datagen.NewMetricsGenerator(entropy, entropy.NewStandardResourceAttributes(), entropy.NewStandardInstrumentationScopes())
	gauges := metricsGen.GenerateGauges(50, 100)
	sums := metricsGen.GenerateSums(50, 100)
	sums.ResourceMetrics().MoveAndAppendTo(gauges.ResourceMetrics())

	expected := pmetricotlp.NewExportRequestFromMetrics(gauges)
	data, err := expected.MarshalProto()
	require.NoError(t, err)

	recs, skipped, err := FromOTLPMetricBytes(data, pool)
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.NoError(t, ValidateIntegrity(recs))

	out, err := ToOTLPMetricBytes(recs)
	require.NoError(t, err)
	recs.Release()

	actualReq := pmetricotlp.NewExportRequest()
	require.NoError(t, actualReq.UnmarshalProto(out))

	assert.Equiv(assert.NewStdUnitTest(t), []json.Marshaler{expected}, []json.Marshaler{actualReq})
}

// TestMetricsRoundTripSkipsUnsupportedTypes asserts that histograms are
// counted as skipped rather than silently dropped or erroring.
func TestMetricsRoundTripSkipsUnsupportedTypes(t *testing.T) {
	t.Parallel()
	pool := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer pool.AssertSize(t, 0)

	entropy := datagen.NewTestEntropy()
	metricsGen := datagen.NewMetricsGenerator(entropy, entropy.NewStandardResourceAttributes(), entropy.NewStandardInstrumentationScopes())
	md := metricsGen.GenerateAllKindOfMetrics(20, 100)

	req := pmetricotlp.NewExportRequestFromMetrics(md)
	data, err := req.MarshalProto()
	require.NoError(t, err)

	recs, skipped, err := FromOTLPMetricBytes(data, pool)
	require.NoError(t, err)
	require.Positive(t, skipped)
	recs.Release()
}

func TestFromOTLPMetricBytesRejectsMalformedProto(t *testing.T) {
	t.Parallel()
	_, _, err := FromOTLPMetricBytes([]byte{0xff, 0xff, 0xff}, memory.NewGoAllocator())
	require.Error(t, err)
}
