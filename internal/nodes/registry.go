/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package nodes is the single place every built-in node factory gets
// registered; cmd/otapdataflow calls Register once at startup before
// compiling any configuration document.
package nodes

import (
	"github.com/otap-dataflow/dataflow-go/internal/batchproc"
	"github.com/otap-dataflow/dataflow-go/internal/node"
	"github.com/otap-dataflow/dataflow-go/internal/nodes/fakereceiver"
	"github.com/otap-dataflow/dataflow-go/internal/nodes/otlpexporter"
	"github.com/otap-dataflow/dataflow-go/internal/nodes/otlpreceiver"
	"github.com/otap-dataflow/dataflow-go/internal/retryproc"
)

// Register installs every built-in receiver, processor, and exporter
// factory into reg.
func Register(reg *node.Registry) {
	reg.Register(fakereceiver.URN, fakereceiver.New)
	reg.Register(otlpreceiver.URN, otlpreceiver.New)
	reg.Register(otlpexporter.URN, otlpexporter.New)
	reg.Register(retryproc.URN, retryproc.New)
	reg.Register(batchproc.URN, batchproc.New)
}
