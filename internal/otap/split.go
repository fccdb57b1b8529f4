/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
)

// splitStep is one stage of projecting a child payload batch down to
// a chunk: keep only rows whose filterCol value is a member of the id
// set named filterSetName, then (if ownIDCol is non-empty) record the
// surviving rows' ownIDCol values under ownIDSetName for the next
// stage to filter against.
type splitStep struct {
	payloadType  ArrowPayloadType
	filterCol    string
	filterSet    string
	ownIDCol     string
	ownIDSetName string
}

func stepsFor(signal graph.Signal) []splitStep {
	switch signal {
	case graph.SignalOtapTraces:
		return []splitStep{
			{ResourceAttrs, "id", "resourceID", "", ""},
			{ScopeAttrs, "parent_id", "scopeID", "", ""},
			{SpanAttrs, "parent_id", "mainID", "", ""},
			{SpanEvents, "parent_id", "mainID", "id", "eventID"},
			{SpanEventAttrs, "parent_id", "eventID", "", ""},
			{SpanLinks, "parent_id", "mainID", "id", "linkID"},
			{SpanLinkAttrs, "parent_id", "linkID", "", ""},
		}
	case graph.SignalOtapLogs:
		return []splitStep{
			{ResourceAttrs, "id", "resourceID", "", ""},
			{ScopeAttrs, "parent_id", "scopeID", "", ""},
			{LogAttrs, "parent_id", "mainID", "", ""},
		}
	case graph.SignalOtapMetrics:
		return []splitStep{
			{ResourceMetricsAttrs, "id", "resourceID", "", ""},
			{ScopeMetricsAttrs, "parent_id", "scopeID", "", ""},
			{NumberDP, "parent_id", "mainID", "id", "dpID"},
			{NumberDPAttrs, "parent_id", "dpID", "", ""},
		}
	default:
		return nil
	}
}

// mainRowGroups computes, for each row of the main batch, the
// contiguous-run boundaries needed to prefer splitting on resource
// then scope boundaries: isResourceStart/isScopeStart are true at a
// row that begins a new resource/scope group. The build side already
// emits rows grouped by resource then scope, so these runs are
// contiguous by construction.
type rowMeta struct {
	resourceStart, scopeStart bool
}

func mainRowGroups(resIDs, scopeIDs []uint32) []rowMeta {
	out := make([]rowMeta, len(resIDs))
	for i := range resIDs {
		if i == 0 || resIDs[i] != resIDs[i-1] {
			out[i] = rowMeta{resourceStart: true, scopeStart: true}
			continue
		}
		if scopeIDs[i] != scopeIDs[i-1] {
			out[i] = rowMeta{scopeStart: true}
		}
	}
	return out
}

// chunkRows partitions [0, n) into index ranges no larger than
// maxRows, preferring to cut at the nearest resource boundary within
// range, falling back to a scope boundary, and finally to a forced
// mid-record cut only when one scope's run alone exceeds maxRows.
func chunkRows(meta []rowMeta, maxRows int) [][2]int {
	n := len(meta)
	var chunks [][2]int
	start := 0
	for start < n {
		end := start
		lastResourceBoundary, lastScopeBoundary := -1, -1
		for end < n && end-start < maxRows {
			if end > start && meta[end].resourceStart {
				lastResourceBoundary = end
			}
			if end > start && meta[end].scopeStart {
				lastScopeBoundary = end
			}
			end++
		}
		cut := end
		if end < n {
			switch {
			case lastResourceBoundary > start:
				cut = lastResourceBoundary
			case lastScopeBoundary > start:
				cut = lastScopeBoundary
			}
		}
		chunks = append(chunks, [2]int{start, cut})
		start = cut
	}
	return chunks
}

// SplitIntoBatches hierarchically splits o so that no chunk's main
// payload batch exceeds maxRows rows, splitting on resource boundaries
// first, then scope, then individual records; every other payload
// batch in the bundle follows its parent rows into the same chunk.
func SplitIntoBatches(o *OtapArrowRecords, maxRows int, mem memory.Allocator) ([]*OtapArrowRecords, error) {
	if maxRows <= 0 {
		return nil, &EncodeError{Signal: o.Signal, Cause: errMaxRows}
	}

	mainType := mainPayloadFor(o.Signal)
	mainBatch, ok := o.Get(mainType)
	if !ok {
		return []*OtapArrowRecords{o}, nil
	}
	rec := mainBatch.Record
	n := int(rec.NumRows())
	if n <= maxRows {
		return []*OtapArrowRecords{o}, nil
	}

	resIDs := make([]uint32, n)
	scopeIDs := make([]uint32, n)
	mainIDs := make([]uint32, n)
	for row := 0; row < n; row++ {
		resIDs[row] = columnU32(rec, "resource_id", row)
		scopeIDs[row] = columnU32(rec, "scope_id", row)
		mainIDs[row] = columnU32(rec, "id", row)
	}

	meta := mainRowGroups(resIDs, scopeIDs)
	ranges := chunkRows(meta, maxRows)
	steps := stepsFor(o.Signal)

	out := make([]*OtapArrowRecords, 0, len(ranges))
	for _, rg := range ranges {
		start, end := rg[0], rg[1]
		rows := make([]int, 0, end-start)
		for r := start; r < end; r++ {
			rows = append(rows, r)
		}

		chunk := NewOtapArrowRecords(o.Signal)
		chunk.set(mainType, takeRows(mem, rec, rows))

		idSets := map[string]map[uint32]bool{
			"resourceID": toSet(resIDs[start:end]),
			"scopeID":    toSet(scopeIDs[start:end]),
			"mainID":     toSet(mainIDs[start:end]),
		}

		for _, step := range steps {
			srcBatch, ok := o.Get(step.payloadType)
			if !ok {
				continue
			}
			keepRows := rowsWhereIn(srcBatch.Record, step.filterCol, idSets[step.filterSet])
			filtered := takeRows(mem, srcBatch.Record, keepRows)
			chunk.set(step.payloadType, filtered)
			if step.ownIDCol != "" {
				idSets[step.ownIDSetName] = idSet(filtered, step.ownIDCol)
			}
		}

		out = append(out, chunk)
	}
	return out, nil
}

func toSet(ids []uint32) map[uint32]bool {
	out := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

var errMaxRows = maxRowsError{}

type maxRowsError struct{}

func (maxRowsError) Error() string { return "otap: maxRows must be positive" }
