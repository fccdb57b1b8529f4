// Copyright The OpenTelemetry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package assert compares OTLP requests (traces, logs, metrics) for
// semantic equivalence rather than structural equality: resource spans
// or scope spans can be split or merged across a batch without changing
// what the batch means, and Equiv/NotEquiv treat those forms as equal.
package assert

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test is the subset of *testing.T that Equiv/NotEquiv need, so they can
// run inside a plain function as well as a test.
type Test interface {
	Errorf(format string, args ...interface{})
}

// StdUnitTest adapts a *testing.T to Test.
type StdUnitTest struct {
	t *testing.T
}

func NewStdUnitTest(t *testing.T) *StdUnitTest {
	return &StdUnitTest{t: t}
}

func (s *StdUnitTest) Errorf(format string, args ...interface{}) {
	s.t.Helper()
	s.t.Errorf(format, args...)
}

// Equiv asserts that two arrays of json.Marshaler are equivalent. Metrics, logs, and traces requests implement
// json.Marshaler and are considered equivalent if they have the same set of vPaths. A vPath is a path to a value
// in a json object. For example the vPath "resource.attributes.service.name=myservice" refers to the value "myservice"
// in the json object {"resource":{"attributes":{"service":{"name":"myservice"}}}}.
//
// The structure of the expected and actual json objects does not need to be exactly the same. For example, the
// following json objects are considered equivalent:
// [{"resource":{"attributes":{"service":"myservice", "version":"1.0"}}}]
// [{"resource":{"attributes":{"service":"myservice"}}}, {"resource":{"attributes":{"version":"1.0"}}}]
//
// This concept of equivalence is useful for testing the conversion between OTLP and OTAP, as that conversion
// doesn't necessarily preserve the structure of the original OTLP entity: resource/scope groups can be split or
// merged as long as the semantic content is preserved.
func Equiv(t Test, expected []json.Marshaler, actual []json.Marshaler) bool {
	expectedVPaths, err := vPaths(expected)
	if err != nil {
		t.Errorf("failed to convert expected to canonical representation: %v", err)
		return false
	}
	actualVPaths, err := vPaths(actual)
	if err != nil {
		t.Errorf("failed to convert actual to canonical representation: %v", err)
		return false
	}

	missingExpected := difference(expectedVPaths, actualVPaths)
	missingActual := difference(actualVPaths, expectedVPaths)

	if len(missingExpected) > 0 || len(missingActual) > 0 {
		var b strings.Builder
		for _, p := range missingExpected {
			fmt.Fprintf(&b, "+ %s\n", p)
		}
		for _, p := range missingActual {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		t.Errorf("traces are not equivalent:\n%s", b.String())
		return false
	}
	return true
}

// EquivFromBytes is Equiv for two already-marshaled JSON documents.
func EquivFromBytes(t Test, expected []byte, actual []byte) bool {
	expectedVPaths, err := vPathsFromBytes(expected)
	if err != nil {
		t.Errorf("failed to convert expected to canonical representation: %v", err)
		return false
	}
	actualVPaths, err := vPathsFromBytes(actual)
	if err != nil {
		t.Errorf("failed to convert actual to canonical representation: %v", err)
		return false
	}

	missingExpected := difference(expectedVPaths, actualVPaths)
	missingActual := difference(actualVPaths, expectedVPaths)

	if len(missingExpected) > 0 || len(missingActual) > 0 {
		t.Errorf("documents are not equivalent (%d missing, %d unexpected vpaths)", len(missingExpected), len(missingActual))
		return false
	}
	return true
}

// NotEquiv asserts that two arrays of json.Marshaler are not equivalent. See Equiv for the definition of equivalence.
func NotEquiv(t Test, expected []json.Marshaler, actual []json.Marshaler) bool {
	expectedVPaths, err := vPaths(expected)
	if err != nil {
		t.Errorf("failed to convert expected to canonical representation: %v", err)
		return false
	}
	actualVPaths, err := vPaths(actual)
	if err != nil {
		t.Errorf("failed to convert actual to canonical representation: %v", err)
		return false
	}

	missingExpected := difference(expectedVPaths, actualVPaths)
	missingActual := difference(actualVPaths, expectedVPaths)

	if len(missingExpected) == 0 && len(missingActual) == 0 {
		t.Errorf("traces should not be equivalent")
		return false
	}
	return true
}

func difference(a, b []string) []string {
	mb := make(map[string]struct{}, len(b))
	for _, x := range b {
		mb[x] = struct{}{}
	}
	var diff []string
	for _, x := range a {
		if _, found := mb[x]; !found {
			diff = append(diff, x)
		}
	}
	return diff
}

func vPaths(marshaler []json.Marshaler) ([]string, error) {
	jsonDocs, err := jsonify(marshaler)
	if err != nil {
		return nil, err
	}
	vPathSet := make(map[string]bool)

	for i := 0; i < len(jsonDocs); i++ {
		exportAllVPaths(jsonDocs[i], "", vPathSet)
	}

	paths := make([]string, 0, len(vPathSet))
	for vPath := range vPathSet {
		paths = append(paths, vPath)
	}
	return paths, nil
}

func vPathsFromBytes(data []byte) ([]string, error) {
	jsonMap, err := jsonifyFromBytes(data)
	if err != nil {
		return nil, err
	}
	vPathSet := make(map[string]bool)
	exportAllVPaths(jsonMap, "", vPathSet)

	paths := make([]string, 0, len(vPathSet))
	for vPath := range vPathSet {
		paths = append(paths, vPath)
	}
	return paths, nil
}

// exportAllVPaths walks a json-decoded document and records one vPath
// per leaf value. Array elements that are objects (resources, scopes,
// events, links, ...) are indexed by nonPositionalIndex instead of their
// position, so arrays can be split, merged, or reordered without
// changing the resulting vPath set.
func exportAllVPaths(node map[string]interface{}, currentVPath string, vPaths map[string]bool) {
	for key, value := range node {
		localVPath := key
		if currentVPath != "" {
			localVPath = currentVPath + "." + key
		}
		switch v := value.(type) {
		case []interface{}:
			for i, item := range v {
				if vMap, ok := item.(map[string]interface{}); ok {
					index := nonPositionalIndex(key, vMap)
					if index != "_" {
						index = md5Hash(index)
					}
					exportAllVPaths(vMap, fmt.Sprintf("%s[%s]", localVPath, index), vPaths)
				} else {
					vPaths[fmt.Sprintf("%s[%d]=%s", localVPath, i, sig(item))] = true
				}
			}
		case map[string]interface{}:
			exportAllVPaths(v, localVPath, vPaths)
		default:
			vPaths[localVPath+"="+sig(value)] = true
		}
	}
}

// nonPositionalIndex returns a string identifying a resource or a scope
// by its content (attributes + schema URL) rather than its position in
// an array, so that two resource/scope groups with the same content are
// treated as the same group even if they appear in different batches.
// "_" is returned for keys that carry no useful identity.
func nonPositionalIndex(typeName string, item map[string]interface{}) string {
	var baseKey string
	switch typeName {
	case "resourceMetrics", "resourceLogs", "resourceSpans":
		baseKey = "resource"
	case "scopeMetrics", "scopeLogs", "scopeSpans":
		baseKey = "scope"
	case "events", "links", "attributes", "spans":
		return sig(item)
	default:
		return "_"
	}

	base, ok := item[baseKey].(map[string]interface{})
	if !ok {
		return "_"
	}
	clone := make(map[string]interface{}, len(base)+1)
	for k, v := range base {
		clone[k] = v
	}
	if su, ok := item["schemaUrl"]; ok {
		clone["schema_url"] = su
	} else if su, ok := item["schema_url"]; ok {
		clone["schema_url"] = su
	}
	return sig(clone)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func sig(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'G', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []string:
		return fmt.Sprintf("[%s]", strings.Join(v, ","))
	case []int64, []float64, []bool:
		return strings.Join(strings.Fields(fmt.Sprint(v)), ",")
	case map[string]interface{}:
		return mapSig(v)
	case []interface{}:
		parts := make([]string, len(v))
		for i := range v {
			parts[i] = sig(v[i])
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return fmt.Sprint(value)
}

func mapSig(vMap map[string]interface{}) string {
	keys := make([]string, 0, len(vMap))
	for key := range vMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "attributes" {
			if attrs, ok := vMap[key].([]interface{}); ok {
				if attrsSig, done := tryAttributesSig(attrs); done {
					parts = append(parts, "attributes="+attrsSig)
					continue
				}
			}
		}
		if key == "events" || key == "links" {
			if items, ok := vMap[key].([]interface{}); ok {
				if itemsSig, done := itemsSig(key, items); done {
					parts = append(parts, key+"="+itemsSig)
					continue
				}
			}
		}
		parts = append(parts, fmt.Sprintf("%s=%s", key, sig(vMap[key])))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// tryAttributesSig computes a sorted-by-key signature of an OTLP
// attributes array (a list of {"key":..., "value":...} objects).
func tryAttributesSig(attrs []interface{}) (string, bool) {
	type kv struct {
		key string
		val interface{}
	}
	pairs := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		m, ok := attr.(map[string]interface{})
		if !ok {
			return "", false
		}
		key, found := m["key"]
		if !found {
			return "", false
		}
		keyStr, ok := key.(string)
		if !ok {
			return "", false
		}
		val, found := m["value"]
		if !found {
			return "", false
		}
		pairs = append(pairs, kv{key: keyStr, val: val})
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s=%s", p.key, sig(p.val))
	}
	return "{" + strings.Join(parts, ",") + "}", true
}

// itemsSig computes a content-hashed signature of an events or links
// array: each item's non-positional index is computed independently,
// then the sorted set of those indices is hashed so the array can be
// compared regardless of item order.
func itemsSig(key string, items []interface{}) (string, bool) {
	indices := make([]string, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return "", false
		}
		indices = append(indices, sig(m))
	}
	sort.Strings(indices)
	return md5Hash(strings.Join(indices, ",")), true
}

func jsonify(marshaler []json.Marshaler) ([]map[string]interface{}, error) {
	docs := make([]map[string]interface{}, 0, len(marshaler))
	for i := 0; i < len(marshaler); i++ {
		data, err := marshaler[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		m, err := jsonifyFromBytes(data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, m)
	}
	return docs, nil
}

func jsonifyFromBytes(data []byte) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// JSONCanonicalEq compares two JSON documents structurally, ignoring key
// and array order. Unlike Equiv, it requires the two documents to carry
// exactly the same values, just not necessarily in the same positions.
func JSONCanonicalEq(t *testing.T, expected interface{}, actual interface{}) {
	t.Helper()

	expectedObj, err := jsonFrom(expected)
	require.NoError(t, err)
	actualObj, err := jsonFrom(actual)
	require.NoError(t, err)

	assert.Equal(t, CanonicalObjectID(expectedObj), CanonicalObjectID(actualObj))
}

// CanonicalObjectID computes a stable string ID for a JSON-decoded value.
func CanonicalObjectID(object interface{}) string {
	if object == nil {
		return "null"
	}
	switch obj := object.(type) {
	case map[string]interface{}:
		return canonicalMapID(obj)
	case []interface{}:
		return canonicalSliceID(obj)
	case []map[string]interface{}:
		return canonicalSliceMapID(obj)
	case int64:
		return strconv.FormatInt(obj, 10)
	case float64:
		return strconv.FormatFloat(obj, 'f', -1, 64)
	case string:
		return fmt.Sprintf("%q", obj)
	case bool:
		return strconv.FormatBool(obj)
	default:
		return fmt.Sprintf("%v", obj)
	}
}

func canonicalMapID(object map[string]interface{}) string {
	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var id strings.Builder
	id.WriteString("{")
	for i, key := range keys {
		if i > 0 {
			id.WriteString(",")
		}
		fmt.Fprintf(&id, "%q:%s", key, CanonicalObjectID(object[key]))
	}
	id.WriteString("}")
	return id.String()
}

func canonicalSliceID(slice []interface{}) string {
	ids := make([]string, len(slice))
	for i, item := range slice {
		ids[i] = CanonicalObjectID(item)
	}
	sort.Strings(ids)
	return "[" + strings.Join(ids, ",") + "]"
}

func canonicalSliceMapID(slice []map[string]interface{}) string {
	ids := make([]string, len(slice))
	for i, item := range slice {
		ids[i] = canonicalMapID(item)
	}
	sort.Strings(ids)
	return "[" + strings.Join(ids, ",") + "]"
}

func jsonFrom(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return jsonFromBytes([]byte(v))
	case []byte:
		return jsonFromBytes(v)
	case []json.Marshaler:
		docs, err := jsonify(v)
		if err != nil {
			return nil, err
		}
		generic := make([]interface{}, len(docs))
		for i, d := range docs {
			generic[i] = d
		}
		return generic, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", value)
	}
}

func jsonFromBytes(data []byte) (interface{}, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err == nil {
		return m, nil
	}
	var arr []interface{}
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, err
	}
	return arr, nil
}
