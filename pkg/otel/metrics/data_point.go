/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package metrics

import (
	"encoding/binary"
	"math"
	"sort"

	"go.opentelemetry.io/collector/pdata/pcommon"
)

// dataPoint is the subset of pmetric.NumberDataPoint / HistogramDataPoint
// / ExponentialHistogramDataPoint / SummaryDataPoint that identifies a
// series: its timestamps and attributes.
type dataPoint interface {
	StartTimestamp() pcommon.Timestamp
	Timestamp() pcommon.Timestamp
	Attributes() pcommon.Map
}

// DataPointSig returns a byte signature identifying dp's series: its
// start and end timestamps followed by its attributes in key-sorted
// order. Keys named in excludeKeys are left out, so callers can compute
// a signature that ignores a data point's own value-bearing attribute.
func DataPointSig[T dataPoint](dp T, excludeKeys ...string) []byte {
	buf := make([]byte, 0, 64)
	buf = appendUint64(buf, uint64(dp.StartTimestamp()))
	buf = appendUint64(buf, uint64(dp.Timestamp()))
	buf = appendAttrs(buf, dp.Attributes(), excludeKeys)
	return buf
}

func appendAttrs(buf []byte, attrs pcommon.Map, exclude []string) []byte {
	keys := make([]string, 0, attrs.Len())
	attrs.Range(func(k string, _ pcommon.Value) bool {
		if !contains(exclude, k) {
			keys = append(keys, k)
		}
		return true
	})
	sort.Strings(keys)

	for _, k := range keys {
		v, _ := attrs.Get(k)
		buf = append(buf, k...)
		buf = appendValue(buf, v, exclude)
	}
	return buf
}

func appendValue(buf []byte, v pcommon.Value, exclude []string) []byte {
	switch v.Type() {
	case pcommon.ValueTypeInt:
		buf = appendUint64(buf, uint64(v.Int()))
	case pcommon.ValueTypeDouble:
		buf = appendUint64(buf, math.Float64bits(v.Double()))
	case pcommon.ValueTypeBool:
		if v.Bool() {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case pcommon.ValueTypeStr:
		buf = append(buf, v.Str()...)
	case pcommon.ValueTypeBytes:
		buf = append(buf, v.Bytes().AsRaw()...)
	case pcommon.ValueTypeMap:
		buf = appendAttrs(buf, v.Map(), exclude)
	}
	return buf
}

func appendUint64(buf []byte, u uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], u)
	return append(buf, tmp[:]...)
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
