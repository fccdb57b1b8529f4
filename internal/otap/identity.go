/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package otap

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.opentelemetry.io/collector/pdata/pcommon"
)

// idAllocator assigns a dense synthetic id to each distinct resource
// or scope, keyed by a content signature, so that all rows belonging
// to the "same" resource/scope across a document share one id. This
// stands in for the arena-and-index scheme §9 describes: resource and
// scope entities have no record batch row of their own, only an id
// that their attribute rows and their owning Logs/Spans/Metrics rows
// carry in common.
type idAllocator struct {
	next int
	ids  map[string]uint32
}

func newIDAllocator() *idAllocator {
	return &idAllocator{ids: make(map[string]uint32)}
}

// idFor returns the id for sig, allocating a new one the first time
// sig is seen.
func (a *idAllocator) idFor(sig string) (id uint32, isNew bool) {
	if id, ok := a.ids[sig]; ok {
		return id, false
	}
	id = uint32(a.next)
	a.next++
	a.ids[sig] = id
	return id, true
}

// resourceSig returns a content signature for a resource: its
// attributes (order-independent) plus schema URL.
func resourceSig(schemaURL string, attrs pcommon.Map) string {
	return schemaURL + "\x00" + attrMapSig(attrs)
}

func scopeSig(resourceID uint32, schemaURL, name, version string, attrs pcommon.Map) string {
	return fmt.Sprintf("%d\x00%s\x00%s\x00%s\x00%s", resourceID, schemaURL, name, version, attrMapSig(attrs))
}

// attrMapSig renders a pcommon.Map as a canonical JSON object so equal
// attribute sets (independent of insertion order) produce equal
// signatures.
func attrMapSig(attrs pcommon.Map) string {
	raw := attrs.AsRaw()
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		ordered = append(ordered, k, raw[k])
	}
	b, _ := json.Marshal(ordered)
	return string(b)
}
