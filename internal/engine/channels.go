/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package engine

import (
	"github.com/otap-dataflow/dataflow-go/internal/channel"
	"github.com/otap-dataflow/dataflow-go/internal/node"
)

// dataChan is the single-consumer bounded queue (C3) one
// processor/exporter node reads its inbound messages from. Every
// producer feeding it (any node with an edge into this one) shares the
// same *dataChan and may call Send/TrySend concurrently from within the
// one core's cooperative loop — concurrently in the sense of
// interleaved calls between suspension points, never from a second OS
// thread.
type dataChan = channel.Data[node.Message]

func newDataChan(capacity int) *dataChan {
	return channel.NewData[node.Message](capacity)
}

// controlChan is the per-core broadcast control channel (C3) shared by
// every node the core hosts.
type controlChan = channel.Control[node.Control]

func newControlChan() *controlChan {
	return channel.NewControl[node.Control]()
}
