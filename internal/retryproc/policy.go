/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package retryproc implements C8: the retry processor that classifies
// NACKs from downstream and either drops the offending message or
// enqueues it for a jittered exponential-backoff retry, bounded by a
// capped in-memory attempt table. Grounded on spec.md §4.6 and
// original_source's rust/otap-dataflow/crates/telemetry backoff shape
// referenced from the engine crate's retry processor.
package retryproc

import (
	"math/rand"
	"time"

	"github.com/otap-dataflow/dataflow-go/internal/node"
)

// RetryPolicy governs how many times a message is retried and the
// backoff schedule between attempts.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
	// JitterFraction is the maximum fraction of the computed backoff
	// added or subtracted at random (e.g. 0.1 = ±10%).
	JitterFraction float64
	// MaxPending bounds the in-memory attempt table; 0 means
	// DefaultMaxPending.
	MaxPending int
}

// DefaultMaxPending is the attempt-table cap used when a RetryPolicy
// leaves MaxPending unset.
const DefaultMaxPending = 10_000

// DefaultPolicy matches the end-to-end scenario in spec.md §8 test 3:
// max_attempts=3, initial_backoff=10ms, backoff_multiplier=2.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxBackoff:        30 * time.Second,
		JitterFraction:    0.1,
		MaxPending:        DefaultMaxPending,
	}
}

// Classify decides whether a NACK is retryable. permanent, as carried
// on the Nack control message, always wins: a permanent NACK (closed
// channel, encode bug, exporter-declared permanent failure) is never
// retried regardless of kind. Otherwise Transient and Timeout are
// retryable; Decode and Fatal are not (spec.md §7's error table: Decode
// drops the message, Fatal transitions the node and is never retried).
func (p RetryPolicy) Classify(kind node.ErrorKind, permanent bool) bool {
	if permanent {
		return false
	}
	switch kind {
	case node.ErrorKindTransient, node.ErrorKindTimeout:
		return true
	default:
		return false
	}
}

// backoff returns the delay before the given attempt number (1-based:
// attempt 1 is the delay before the first retry), with jitter applied.
func (p RetryPolicy) backoff(attempt int, rng *rand.Rand) time.Duration {
	d := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= p.BackoffMultiplier
	}
	if p.MaxBackoff > 0 && d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	if p.JitterFraction > 0 {
		jitter := (rng.Float64()*2 - 1) * p.JitterFraction * d
		d += jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

func (p RetryPolicy) maxPending() int {
	if p.MaxPending <= 0 {
		return DefaultMaxPending
	}
	return p.MaxPending
}
