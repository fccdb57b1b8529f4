/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"fmt"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
)

// IntegrityError reports a parent-id value in a child batch that does
// not resolve to a row in its parent, per §4.2 invariant (a).
type IntegrityError struct {
	Child, Parent ArrowPayloadType
	ParentID      uint32
	Row           int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("otap: %s row %d references unknown %s id %d", e.Child, e.Row, e.Parent, e.ParentID)
}

// fkCheck is one parent-id integrity rule: every value of childCol in
// the childType batch must appear in parentCol of the parentType
// batch.
type fkCheck struct {
	childType  ArrowPayloadType
	childCol   string
	parentType ArrowPayloadType
	parentCol  string
}

func checksFor(signal graph.Signal) []fkCheck {
	switch signal {
	case graph.SignalOtapTraces:
		return []fkCheck{
			{ScopeAttrs, "parent_id", Spans, "scope_id"},
			{SpanAttrs, "parent_id", Spans, "id"},
			{SpanEvents, "parent_id", Spans, "id"},
			{SpanEventAttrs, "parent_id", SpanEvents, "id"},
			{SpanLinks, "parent_id", Spans, "id"},
			{SpanLinkAttrs, "parent_id", SpanLinks, "id"},
			{Spans, "resource_id", ResourceAttrs, "id"},
		}
	case graph.SignalOtapLogs:
		return []fkCheck{
			{ScopeAttrs, "parent_id", Logs, "scope_id"},
			{LogAttrs, "parent_id", Logs, "id"},
			{Logs, "resource_id", ResourceAttrs, "id"},
		}
	case graph.SignalOtapMetrics:
		return []fkCheck{
			{ScopeMetricsAttrs, "parent_id", Metrics, "scope_id"},
			{NumberDP, "parent_id", Metrics, "id"},
			{NumberDPAttrs, "parent_id", NumberDP, "id"},
			{Metrics, "resource_id", ResourceMetricsAttrs, "id"},
		}
	default:
		return nil
	}
}

// ValidateIntegrity checks every parent-id column named by
// checksFor(o.Signal) resolves to a known id in its declared parent
// batch. A batch's own "id" values may repeat (several attribute rows
// share one owning entity's id), so parent ids are collected into a
// set before membership is tested.
func ValidateIntegrity(o *OtapArrowRecords) error {
	for _, c := range checksFor(o.Signal) {
		childBatch, ok := o.Get(c.childType)
		if !ok {
			continue
		}
		parentBatch, ok := o.Get(c.parentType)
		if !ok {
			if childBatch.Record.NumRows() == 0 {
				continue
			}
			return &IntegrityError{Child: c.childType, Parent: c.parentType, Row: 0}
		}

		parentIDs := make(map[uint32]struct{}, parentBatch.Record.NumRows())
		pn := int(parentBatch.Record.NumRows())
		for row := 0; row < pn; row++ {
			parentIDs[columnU32(parentBatch.Record, c.parentCol, row)] = struct{}{}
		}

		cn := int(childBatch.Record.NumRows())
		for row := 0; row < cn; row++ {
			pid := columnU32(childBatch.Record, c.childCol, row)
			if _, ok := parentIDs[pid]; !ok {
				return &IntegrityError{Child: c.childType, Parent: c.parentType, ParentID: pid, Row: row}
			}
		}
	}
	return nil
}
