/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package node

import (
	"context"
	"time"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
)

// EffectHandler is the capability set every node uses to interact with
// its core: emitting messages, acking/nacking, scheduling local work,
// reading the clock, and touching its metric set. Nodes never reach
// into channels or the clock directly so that a fake EffectHandler can
// drive a node under test without a running engine.
type EffectHandler interface {
	// Emit dispatches messages on the node's default out-port,
	// according to its configured DispatchStrategy.
	Emit(ctx context.Context, msgs ...Message) error
	// EmitTo dispatches on a specific named out-port.
	EmitTo(ctx context.Context, port graph.PortName, msgs ...Message) error
	Ack(id MsgID)
	Nack(id MsgID, kind ErrorKind, permanent bool)
	// SpawnLocal schedules fn to run later on the same core's
	// cooperative loop; fn must not block.
	SpawnLocal(fn func(context.Context))
	Now() time.Time
	MetricSet(name string) MetricSet
}

// MetricSet is the subset of internal/telemetry a node needs without
// importing the concrete reporter type.
type MetricSet interface {
	Inc(counter string, delta int64)
	Set(gauge string, value int64)
}

// Receiver produces PData; it never consumes. Start runs until the
// control channel delivers Shutdown (at which point it must drain any
// in-flight polling and stop within the deadline) or ctx is cancelled.
type Receiver interface {
	Start(ctx context.Context, control <-chan Control, eh EffectHandler) error
}

// Processor transforms one inbound message into zero or more outbound
// ones. Implementations are single-core-owned and may hold mutable
// state between calls.
type Processor interface {
	Process(ctx context.Context, msg Message, eh EffectHandler) error
	// HandleControl lets a processor react to control-plane messages
	// (TimerTick for batch flush triggers, Shutdown for final flush).
	HandleControl(ctx context.Context, ctrl Control, eh EffectHandler) error
}

// Exporter translates a message to an external protocol. Export
// returns nil on success or an error; the engine turns every non-nil
// error into a non-permanent ErrorKindTransient NACK, whatever the
// error is.
type Exporter interface {
	Export(ctx context.Context, msg Message, eh EffectHandler) error
	HandleControl(ctx context.Context, ctrl Control, eh EffectHandler) error
}

// Factory constructs a node instance from its URN-resolved config. The
// same signature serves all three kinds; CoreContext narrows what a
// factory may touch at construction time (no channels yet — those are
// wired by the engine after construction).
type Factory func(unique graph.NodeUnique, userConfig []byte, cc CoreContext) (any, error)

// CoreContext is passed to factories at node-construction time.
type CoreContext struct {
	CoreID int
	Clock  func() time.Time
}
