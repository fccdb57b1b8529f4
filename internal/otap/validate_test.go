/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/collector/pdata/plog"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
)

func TestValidateIntegrityAcceptsWellFormedBundle(t *testing.T) {
	t.Parallel()
	mem := memory.NewGoAllocator()

	ld := plog.NewLogs()
	rl := ld.ResourceLogs().AppendEmpty()
	rl.Resource().Attributes().PutStr("service.name", "svc")
	sl := rl.ScopeLogs().AppendEmpty()
	sl.LogRecords().AppendEmpty().Body().SetStr("hello")

	recs, err := logsToOtap(ld, mem)
	require.NoError(t, err)
	defer recs.Release()

	require.NoError(t, ValidateIntegrity(recs))
}

func TestValidateIntegrityRejectsDanglingParentID(t *testing.T) {
	t.Parallel()
	mem := memory.NewGoAllocator()

	ld := plog.NewLogs()
	rl := ld.ResourceLogs().AppendEmpty()
	sl := rl.ScopeLogs().AppendEmpty()
	sl.LogRecords().AppendEmpty().Body().SetStr("hello")

	recs, err := logsToOtap(ld, mem)
	require.NoError(t, err)
	defer recs.Release()

	logAttrs := newRowBuilder(mem, attrFields("parent_id"))
	logAttrs.u32("parent_id", 9999)
	logAttrs.str("key", "bogus")
	logAttrs.u8("value_type", 0)
	logAttrs.strNull("str")
	logAttrs.i64Null("int")
	logAttrs.f64Null("double")
	logAttrs.boolNull("bool")
	logAttrs.bytesNull("bytes")
	if old, ok := recs.Get(LogAttrs); ok {
		old.Release()
	}
	recs.set(LogAttrs, logAttrs.finish())

	err = ValidateIntegrity(recs)
	require.Error(t, err)
	var integrityErr *IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	require.Equal(t, LogAttrs, integrityErr.Child)
	require.EqualValues(t, 9999, integrityErr.ParentID)
}

func TestValidateIntegritySkipsSignalsWithNoChecks(t *testing.T) {
	t.Parallel()
	recs := NewOtapArrowRecords(graph.Signal(-1))
	require.NoError(t, ValidateIntegrity(recs))
}
