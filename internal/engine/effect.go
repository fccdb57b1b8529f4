/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/otap-dataflow/dataflow-go/internal/channel"
	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/node"
)

// effectHandler is the concrete node.EffectHandler every node instance
// on this core receives; it closes over the core, the pipeline, and
// the node that owns it so Emit/EmitTo can resolve out-ports without
// the node needing to know its own topology.
type effectHandler struct {
	core *Core
	rp   *RuntimePipeline
	nr   *nodeRuntime
}

var _ node.EffectHandler = (*effectHandler)(nil)

func (e *effectHandler) Emit(ctx context.Context, msgs ...node.Message) error {
	return e.EmitTo(ctx, graph.DefaultPort, msgs...)
}

func (e *effectHandler) EmitTo(ctx context.Context, port graph.PortName, msgs ...node.Message) error {
	op, ok := e.nr.outPorts[port]
	if !ok || len(op.peers) == 0 {
		return nil
	}
	for _, msg := range msgs {
		if msg.Source == "" {
			msg.Source = e.nr.id
		}
		if err := e.dispatch(ctx, op, msg); err != nil {
			return e.translateSendError(msg.ID, err)
		}
	}
	return nil
}

// dispatch implements the four strategies of §4.1. Broadcast requires
// every peer to accept; the first rejection (Closed, deadline
// exceeded) short-circuits and is returned to EmitTo, which translates
// it into a NACK via translateSendError.
func (e *effectHandler) dispatch(ctx context.Context, op *outPortRuntime, msg node.Message) error {
	switch op.strategy {
	case graph.DispatchBroadcast:
		for i, peer := range op.peers {
			m := msg
			if i > 0 && m.Data.Records != nil {
				m.Data.Records.Retain()
			}
			dest := e.rp.node(peer)
			if err := dest.inbox.Send(ctx, m); err != nil {
				return err
			}
		}
		return nil

	case graph.DispatchRoundRobin:
		idx := op.rr % uint64(len(op.peers))
		op.rr++
		dest := e.rp.node(op.peers[idx])
		return dest.inbox.Send(ctx, msg)

	case graph.DispatchLeastLoaded:
		best := op.peers[0]
		bestDepth := e.rp.node(best).inbox.QueueDepth()
		for _, peer := range op.peers[1:] {
			d := e.rp.node(peer).inbox.QueueDepth()
			if d < bestDepth {
				best, bestDepth = peer, d
			}
		}
		return e.rp.node(best).inbox.Send(ctx, msg)

	case graph.DispatchRandom:
		idx := e.core.rng.Intn(len(op.peers))
		dest := e.rp.node(op.peers[idx])
		return dest.inbox.Send(ctx, msg)

	default:
		return fmt.Errorf("engine: unknown dispatch strategy %v", op.strategy)
	}
}

// translateSendError implements §5's "a timed-out send or await
// yields Closed/Timeout which must be translated to a NACK with
// permanent=false (for timeouts) or permanent=true (for closed)". It
// is the one place that knows which concrete error a Data.Send call
// can fail with, so every Processor/Exporter/Receiver gets the
// translation for free rather than re-deriving it at each call site.
// An error dispatch could never actually produce (an unknown dispatch
// strategy) is returned unmodified so it still fails the node loudly.
func (e *effectHandler) translateSendError(id node.MsgID, err error) error {
	switch {
	case errors.Is(err, channel.ErrClosed):
		e.Nack(id, node.ErrorKindPermanent, true)
		return nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		e.Nack(id, node.ErrorKindTimeout, false)
		return nil
	default:
		return err
	}
}

func (e *effectHandler) Ack(id node.MsgID) {
	e.core.control.Publish(node.Control{Kind: node.ControlAck, AckID: id})
}

func (e *effectHandler) Nack(id node.MsgID, kind node.ErrorKind, permanent bool) {
	e.core.control.Publish(node.Control{Kind: node.ControlNack, AckID: id, NackKind: kind, Permanent: permanent})
}

func (e *effectHandler) SpawnLocal(fn func(context.Context)) {
	e.core.spawn(fn)
}

func (e *effectHandler) Now() time.Time {
	return e.core.clock()
}

func (e *effectHandler) MetricSet(name string) node.MetricSet {
	return e.core.metricSet(string(e.nr.id), name)
}

// newRNG builds a per-core deterministic RNG; Random dispatch needs no
// cryptographic strength, only a uniform pick across peers.
func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
