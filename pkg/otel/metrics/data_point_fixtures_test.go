/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"

	internalfixtures "github.com/otap-dataflow/dataflow-go/pkg/otel/internal"
	"github.com/otap-dataflow/dataflow-go/pkg/otel/pdata"
)

// TestDataPointSigDistinguishesFixtureSeries exercises DataPointSig
// against the shared test fixtures (richer attribute sets, including
// nested maps and exemplars) rather than a single hand-rolled data
// point: NDP1/NDP2/NDP3 differ in timestamps and attributes, so their
// signatures must all differ from one another, while copying a
// fixture must not change its signature.
func TestDataPointSigDistinguishesFixtureSeries(t *testing.T) {
	t.Parallel()

	a := internalfixtures.NDP1()
	b := internalfixtures.NDP2()
	c := internalfixtures.NDP3()

	sigA := DataPointSig(a)
	sigB := DataPointSig(b)
	sigC := DataPointSig(c)

	require.NotEqual(t, sigA, sigB)
	require.NotEqual(t, sigB, sigC)
	require.NotEqual(t, sigA, sigC)

	aCopy := internalfixtures.NDP1()
	require.Equal(t, sigA, DataPointSig(aCopy))

	av, ok := a.Attributes().Get("str")
	require.True(t, ok)
	acv, ok := aCopy.Attributes().Get("str")
	require.True(t, ok)
	require.True(t, pdata.ValuesEqual(av, acv))

	bv, ok := b.Attributes().Get("str")
	require.True(t, ok)
	require.False(t, pdata.ValuesEqual(av, bv))
}
