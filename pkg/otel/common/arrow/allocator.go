/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package arrow

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// LimitError is returned (as a panic value, matching memory.Allocator's
// panic-on-OOM convention) when an allocation would exceed the
// configured byte boundary.
type LimitError struct {
	Request int
	Inuse   int
	Limit   int
}

func (e LimitError) Error() string {
	return fmt.Sprintf("memory limit exceeded: requested %d out of %d (in-use=%d)", e.Request, e.Limit, e.Inuse)
}

// Is reports true for any LimitError, regardless of field values, so
// callers can test with errors.Is(err, LimitError{}).
func (e LimitError) Is(target error) bool {
	_, ok := target.(LimitError)
	return ok
}

// NewLimitErrorFromError unwraps a LimitError from err, however deeply
// it has been wrapped with fmt.Errorf's %w.
func NewLimitErrorFromError(err error) (LimitError, bool) {
	var le LimitError
	ok := errors.As(err, &le)
	return le, ok
}

// LimitedAllocator wraps a memory.Allocator and caps the number of bytes
// it will hand out at any one time, panicking with a LimitError when a
// request would push usage past the boundary.
type LimitedAllocator struct {
	alloc memory.Allocator
	limit int
	inuse int
}

func NewLimitedAllocator(alloc memory.Allocator, limit int) *LimitedAllocator {
	return &LimitedAllocator{alloc: alloc, limit: limit}
}

func (l *LimitedAllocator) Allocate(size int) []byte {
	if l.inuse+size > l.limit {
		panic(LimitError{Request: size, Inuse: l.inuse, Limit: l.limit})
	}
	b := l.alloc.Allocate(size)
	l.inuse += size
	return b
}

func (l *LimitedAllocator) Reallocate(size int, b []byte) []byte {
	delta := size - len(b)
	if delta > 0 && l.inuse+delta > l.limit {
		panic(LimitError{Request: delta, Inuse: l.inuse, Limit: l.limit})
	}
	nb := l.alloc.Reallocate(size, b)
	l.inuse += delta
	return nb
}

func (l *LimitedAllocator) Free(b []byte) {
	l.alloc.Free(b)
	l.inuse -= len(b)
}
