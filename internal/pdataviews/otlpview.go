/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package pdataviews

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
)

// resourceListField is the field number of the repeated top-level
// resource_{logs,metrics,spans} message in every Export*ServiceRequest
// — all three share field 1, so one walker serves every signal.
const resourceListField protowire.Number = 1

// schemaURLField is the schema_url string field number shared by
// ResourceLogs, ResourceMetrics, and ResourceSpans.
const schemaURLField protowire.Number = 3

// PeekResourceCount counts the top-level resource_{logs,metrics,spans}
// entries in a raw OTLP Export*ServiceRequest message without
// unmarshaling it — a receiver or admission node can use this to size
// work (e.g. split decisions, load shedding) before paying for the
// full internal/otap.FromOTLPBytes decode.
func PeekResourceCount(data []byte) (int, error) {
	count := 0
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return 0, fmt.Errorf("pdataviews: malformed tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		size := protowire.ConsumeFieldValue(num, typ, data)
		if size < 0 {
			return 0, fmt.Errorf("pdataviews: malformed field: %w", protowire.ParseError(size))
		}
		if num == resourceListField && typ == protowire.BytesType {
			count++
		}
		data = data[size:]
	}
	return count, nil
}

// PeekSchemaURL returns the schema_url carried by the first top-level
// resource entry, without decoding the resource's attributes, scopes,
// or records. found is false if the message has no top-level resource
// entry or that entry carries no schema_url.
func PeekSchemaURL(data []byte) (url string, found bool, err error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", false, fmt.Errorf("pdataviews: malformed tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if num != resourceListField || typ != protowire.BytesType {
			size := protowire.ConsumeFieldValue(num, typ, data)
			if size < 0 {
				return "", false, fmt.Errorf("pdataviews: malformed field: %w", protowire.ParseError(size))
			}
			data = data[size:]
			continue
		}
		msg, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return "", false, fmt.Errorf("pdataviews: malformed resource entry: %w", protowire.ParseError(n))
		}
		return peekStringField(msg, schemaURLField)
	}
	return "", false, nil
}

// peekStringField scans one flat message for the first occurrence of
// field, returning its string value.
func peekStringField(data []byte, field protowire.Number) (string, bool, error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", false, fmt.Errorf("pdataviews: malformed tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if num == field && typ == protowire.BytesType {
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return "", false, fmt.Errorf("pdataviews: malformed string field: %w", protowire.ParseError(n))
			}
			return string(b), true, nil
		}
		size := protowire.ConsumeFieldValue(num, typ, data)
		if size < 0 {
			return "", false, fmt.Errorf("pdataviews: malformed field: %w", protowire.ParseError(size))
		}
		data = data[size:]
	}
	return "", false, nil
}

// SignalSupportsProtoPeek reports whether sig carries bytes in OTLP
// proto form (as opposed to an already-decoded OTAP bundle) — callers
// iterating over node.PData should check this before calling the Peek
// functions above.
func SignalSupportsProtoPeek(sig graph.Signal) bool {
	switch sig {
	case graph.SignalLogs, graph.SignalMetrics, graph.SignalTraces:
		return true
	default:
		return false
	}
}
