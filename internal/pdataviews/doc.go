/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package pdataviews implements C11: zero-copy, read-only accessors
// over the two pdata encodings a node.Message can carry (see
// node.PData) — OTLP proto bytes and OTAP Arrow record batches —
// without fully decoding either one into a materialized pcommon/otap
// structure.
//
// RecordView and BundleView read columns directly off the
// arrow.Record they wrap, resolving a dictionary-encoded column
// transparently so callers don't need to know whether
// otap.ApplyTransportOptimizations has run. PeekResourceCount and
// PeekSchemaURL walk raw OTLP proto bytes with protowire, reading only
// the top-level fields needed rather than unmarshaling the full
// ExportXServiceRequest.
package pdataviews
