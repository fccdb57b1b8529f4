/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package channel implements the single-consumer bounded queues nodes
// use to exchange PData messages within one core, plus the broadcast
// control channel shared by every node on a core. Channels are never
// shared across cores: each is created and consumed entirely within
// one per-core runtime, so no synchronization beyond Go's built-in
// channel semantics is needed.
package channel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Send/Recv once the channel has been closed,
// either by the consumer dropping its handle or by shutdown.
var ErrClosed = errors.New("channel: closed")

// ErrFull is returned by TrySend when the channel has no free capacity.
var ErrFull = errors.New("channel: full")

// Data is a bounded single-producer-single-consumer queue. Multiple
// producers may hold a *Data and call Send/TrySend concurrently
// (MPSC); there is exactly one consumer, which calls Recv.
type Data[T any] struct {
	ch     chan T
	closed atomic.Bool
	once   sync.Once
}

// NewData creates a bounded channel of the given capacity.
func NewData[T any](capacity int) *Data[T] {
	return &Data[T]{ch: make(chan T, capacity)}
}

// Send blocks cooperatively (suspends on the channel, not the OS
// thread) until there is space, ctx is cancelled, or the channel is
// closed.
func (d *Data[T]) Send(ctx context.Context, msg T) error {
	if d.closed.Load() {
		return ErrClosed
	}
	select {
	case d.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend attempts a non-blocking send, returning ErrFull immediately
// if there is no free capacity.
func (d *Data[T]) TrySend(msg T) error {
	if d.closed.Load() {
		return ErrClosed
	}
	select {
	case d.ch <- msg:
		return nil
	default:
		return ErrFull
	}
}

// Recv blocks until a message is available or the channel closes, in
// which case ok is false.
func (d *Data[T]) Recv(ctx context.Context) (msg T, ok bool, err error) {
	select {
	case m, open := <-d.ch:
		if !open {
			return msg, false, nil
		}
		return m, true, nil
	case <-ctx.Done():
		return msg, false, ctx.Err()
	}
}

// QueueDepth is a best-effort, lock-free read of the number of
// messages currently buffered — used by the LeastLoaded dispatch
// strategy, which tolerates a stale read.
func (d *Data[T]) QueueDepth() int {
	return len(d.ch)
}

// Chan exposes the receive side for use in a select (or
// reflect.Select, for a dynamically-sized case list) alongside a
// node's control subscription — a core's single cooperative loop
// multiplexes every node it hosts this way. Only the one designated
// consumer may read from it.
func (d *Data[T]) Chan() <-chan T {
	return d.ch
}

// Close marks the channel closed and unblocks the consumer's Recv with
// ok=false. Safe to call more than once; only the first call has
// effect. Pending/future Sends observe ErrClosed.
func (d *Data[T]) Close() {
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
	})
}

// Control is a broadcast channel: any number of nodes may read the
// same sequence of control messages. Implemented as one buffered Go
// channel per reader (capacity chosen at Subscribe), fed by a
// goroutine-free fan-out Publish call. Subscribe, Publish and Close
// all take the mutex, since Publish is called from receiver goroutines
// and from Shutdown as well as from the core's own loop.
type Control[T any] struct {
	mu   sync.Mutex
	subs []chan T
}

// NewControl creates an empty broadcast channel.
func NewControl[T any]() *Control[T] {
	return &Control[T]{}
}

// Subscribe registers a new reader and returns its receive channel.
// Must be called before the first Publish a subscriber needs to see;
// messages published before Subscribe are not replayed.
func (c *Control[T]) Subscribe(capacity int) <-chan T {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan T, capacity)
	c.subs = append(c.subs, ch)
	return ch
}

// Publish delivers msg to every current subscriber. A subscriber whose
// buffer is full is skipped rather than blocking the publisher —
// control messages (Shutdown, TimerTick, Config) are expected to be
// drained promptly by well-behaved nodes, and a degraded node must not
// be able to wedge the whole core's control plane.
func (c *Control[T]) Publish(msg T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Close closes every subscriber channel.
func (c *Control[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
}
