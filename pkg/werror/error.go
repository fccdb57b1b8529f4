/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package werror builds errors that carry a breadcrumb trail of call
// sites instead of a single flat message. Each Wrap/WrapWithContext call
// prepends "pkg.Func:line" for the function doing the wrapping, so the
// resulting error message reads as a call stack from outermost to
// innermost, ending with the original error's message.
package werror

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

type wrappedError struct {
	msg   string
	cause error
}

func (e *wrappedError) Error() string {
	return e.msg
}

func (e *wrappedError) Unwrap() error {
	return e.cause
}

// Wrap prepends the caller's "pkg.Func:line" frame to err's message.
// Returns nil if err is nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg:   callerFrame(2) + "->" + err.Error(),
		cause: err,
	}
}

// WrapWithContext behaves like Wrap but also appends a "{key=val,...}"
// block, sorted by key, after the caller's frame.
func WrapWithContext(err error, ctx map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg:   callerFrame(2) + formatContext(ctx) + "->" + err.Error(),
		cause: err,
	}
}

func callerFrame(skip int) string {
	pc, _, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown:0"
	}
	name := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		name = fn.Name()
	}
	return fmt.Sprintf("%s:%d", name, line)
}

func formatContext(ctx map[string]interface{}) string {
	if len(ctx) == 0 {
		return ""
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, ctx[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
