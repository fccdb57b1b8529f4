/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package retryproc

import (
	"container/list"
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/otap-dataflow/dataflow-go/internal/graph"
	"github.com/otap-dataflow/dataflow-go/internal/node"
	"github.com/otap-dataflow/dataflow-go/pkg/werror"
)

// URN is the factory key this package registers under.
const URN = "retry_processor"

// jsonPolicy is RetryPolicy's user_config JSON shape; durations are
// milliseconds on the wire since config documents are plain JSON.
type jsonPolicy struct {
	MaxAttempts       int     `json:"max_attempts"`
	InitialBackoffMS  int64   `json:"initial_backoff_ms"`
	BackoffMultiplier float64 `json:"backoff_multiplier"`
	MaxBackoffMS      int64   `json:"max_backoff_ms"`
	JitterFraction    float64 `json:"jitter_fraction"`
	MaxPending        int     `json:"max_pending"`
}

func parsePolicy(raw []byte) (RetryPolicy, error) {
	policy := DefaultPolicy()
	if len(raw) == 0 {
		return policy, nil
	}
	var jp jsonPolicy
	if err := json.Unmarshal(raw, &jp); err != nil {
		return policy, werror.Wrap(err)
	}
	if jp.MaxAttempts > 0 {
		policy.MaxAttempts = jp.MaxAttempts
	}
	if jp.InitialBackoffMS > 0 {
		policy.InitialBackoff = time.Duration(jp.InitialBackoffMS) * time.Millisecond
	}
	if jp.BackoffMultiplier > 0 {
		policy.BackoffMultiplier = jp.BackoffMultiplier
	}
	if jp.MaxBackoffMS > 0 {
		policy.MaxBackoff = time.Duration(jp.MaxBackoffMS) * time.Millisecond
	}
	if jp.JitterFraction > 0 {
		policy.JitterFraction = jp.JitterFraction
	}
	if jp.MaxPending > 0 {
		policy.MaxPending = jp.MaxPending
	}
	return policy, nil
}

// New is the node.Factory for URN.
func New(_ graph.NodeUnique, userConfig []byte, _ node.CoreContext) (any, error) {
	policy, err := parsePolicy(userConfig)
	if err != nil {
		return nil, err
	}
	return NewProcessor(policy), nil
}

var _ node.Processor = (*Processor)(nil)

// entry tracks one in-flight message awaiting Ack/Nack.
type entry struct {
	msg          node.Message
	attempt      int
	nextDeadline time.Time
	elem         *list.Element // position in lru for oldest-eviction
}

// Processor is the retry processor (C8): a node.Processor that
// forwards every inbound message downstream immediately, tracks it by
// ID, and reacts to Ack/Nack/TimerTick/Shutdown control messages to
// retry, drop, or flush.
type Processor struct {
	policy RetryPolicy
	rng    *rand.Rand

	pending map[node.MsgID]*entry
	lru     *list.List // front = oldest
}

// NewProcessor constructs a retry processor with the given policy.
func NewProcessor(policy RetryPolicy) *Processor {
	return &Processor{
		policy:  policy,
		rng:     rand.New(rand.NewSource(1)),
		pending: make(map[node.MsgID]*entry),
		lru:     list.New(),
	}
}

// Process forwards msg downstream and starts tracking it for a
// possible future NACK.
func (p *Processor) Process(ctx context.Context, msg node.Message, eh node.EffectHandler) error {
	p.track(msg, eh)
	return eh.Emit(ctx, msg)
}

func (p *Processor) track(msg node.Message, eh node.EffectHandler) {
	if _, exists := p.pending[msg.ID]; exists {
		return
	}
	if len(p.pending) >= p.policy.maxPending() {
		p.evictOldest(eh)
	}
	e := &entry{msg: msg}
	e.elem = p.lru.PushBack(msg.ID)
	p.pending[msg.ID] = e
}

func (p *Processor) evictOldest(eh node.EffectHandler) {
	front := p.lru.Front()
	if front == nil {
		return
	}
	id := front.Value.(node.MsgID)
	p.lru.Remove(front)
	delete(p.pending, id)
	eh.MetricSet("retryproc").Inc("retry_overflow", 1)
}

func (p *Processor) forget(e *entry) {
	p.lru.Remove(e.elem)
	delete(p.pending, e.msg.ID)
}

// HandleControl reacts to Ack (stop tracking), Nack (classify and
// retry or drop), TimerTick (pop due retries and re-emit), and
// Shutdown (flush: stop retrying, NACK-permanent everything still
// pending).
func (p *Processor) HandleControl(ctx context.Context, ctrl node.Control, eh node.EffectHandler) error {
	switch ctrl.Kind {
	case node.ControlAck:
		if e, ok := p.pending[ctrl.AckID]; ok {
			p.forget(e)
		}
	case node.ControlNack:
		return p.handleNack(ctx, ctrl, eh)
	case node.ControlTimerTick:
		return p.popDue(ctx, ctrl.Now, eh)
	case node.ControlShutdown:
		p.flush(eh)
	}
	return nil
}

func (p *Processor) handleNack(ctx context.Context, ctrl node.Control, eh node.EffectHandler) error {
	e, ok := p.pending[ctrl.AckID]
	if !ok {
		return nil
	}
	metrics := eh.MetricSet("retryproc")

	if !p.policy.Classify(ctrl.NackKind, ctrl.Permanent) || e.attempt >= p.policy.MaxAttempts {
		p.forget(e)
		metrics.Inc("dropped_permanent", 1)
		eh.Nack(e.msg.ID, node.ErrorKindPermanent, true)
		return nil
	}

	e.attempt++
	e.nextDeadline = eh.Now().Add(p.policy.backoff(e.attempt, p.rng))
	metrics.Inc("retry_attempts", 1)
	return nil
}

// popDue re-emits every entry whose backoff has elapsed as of now.
func (p *Processor) popDue(ctx context.Context, now time.Time, eh node.EffectHandler) error {
	var due []*entry
	for _, e := range p.pending {
		if e.attempt > 0 && !e.nextDeadline.After(now) {
			due = append(due, e)
		}
	}
	for _, e := range due {
		e.nextDeadline = time.Time{} // cleared until the next NACK schedules a new one
		if err := eh.Emit(ctx, e.msg); err != nil {
			return err
		}
	}
	return nil
}

// flush stops retrying and NACKs every still-pending message upstream
// as permanent, matching spec.md §4.6's "pending messages NACK
// upstream as permanent to avoid silent loss".
func (p *Processor) flush(eh node.EffectHandler) {
	for _, e := range p.pending {
		eh.Nack(e.msg.ID, node.ErrorKindPermanent, true)
	}
	p.pending = make(map[node.MsgID]*entry)
	p.lru.Init()
}

// Pending returns the number of messages currently tracked.
func (p *Processor) Pending() int {
	return len(p.pending)
}
