/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/otap-dataflow/dataflow-go/pkg/datagen"
)

func TestSplitIntoBatchesReturnsInputUnchangedUnderLimit(t *testing.T) {
	t.Parallel()
	pool := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer pool.AssertSize(t, 0)

	entropy := datagen.NewTestEntropy()
	logsGen := datagen.NewLogsGenerator(entropy, entropy.NewStandardResourceAttributes(), entropy.NewStandardInstrumentationScopes())
	recs, err := logsToOtap(logsGen.Generate(10, 100), pool)
	require.NoError(t, err)

	chunks, err := SplitIntoBatches(recs, 1000, pool)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Same(t, recs, chunks[0])

	recs.Release()
}

func TestSplitIntoBatchesRejectsNonPositiveMaxRows(t *testing.T) {
	t.Parallel()
	pool := memory.NewGoAllocator()
	recs := NewOtapArrowRecords(0)
	_, err := SplitIntoBatches(recs, 0, pool)
	require.Error(t, err)
}

// TestSplitIntoBatchesPreservesAllRowsAndIntegrity splits a bundle
// large enough to require several chunks and checks that every chunk
// passes ValidateIntegrity on its own and that no log record is lost
// or duplicated across chunks.
func TestSplitIntoBatchesPreservesAllRowsAndIntegrity(t *testing.T) {
	t.Parallel()
	pool := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer pool.AssertSize(t, 0)

	entropy := datagen.NewTestEntropy()
	logsGen := datagen.NewLogsGenerator(entropy, entropy.NewStandardResourceAttributes(), entropy.NewStandardInstrumentationScopes())
	recs, err := logsToOtap(logsGen.Generate(500, 100), pool)
	require.NoError(t, err)

	mainBatch, ok := recs.Get(Logs)
	require.True(t, ok)
	totalRows := int(mainBatch.Record.NumRows())
	require.Greater(t, totalRows, 50)

	chunks, err := SplitIntoBatches(recs, 50, pool)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	gotRows := 0
	for _, c := range chunks {
		require.NoError(t, ValidateIntegrity(c))
		b, ok := c.Get(Logs)
		require.True(t, ok)
		require.LessOrEqual(t, int(b.Record.NumRows()), 50)
		gotRows += int(b.Record.NumRows())
	}
	require.Equal(t, totalRows, gotRows)

	for _, c := range chunks {
		c.Release()
	}
	recs.Release()
}
