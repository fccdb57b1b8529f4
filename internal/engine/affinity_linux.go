//go:build linux

/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package engine

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore makes a best-effort attempt to bind the calling OS thread
// to CPU coreID. Per spec.md §4.5, failure is logged by the caller,
// never fatal: the worker still runs, just without the affinity
// guarantee.
func pinToCore(coreID int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(coreID)
	return unix.SchedSetaffinity(0, &set)
}
