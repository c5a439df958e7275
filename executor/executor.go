// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package executor abstracts the scheduling of detached background
// work, so the goroutines a channel spawns for connection drivers and
// connect attempts can be observed or made deterministic in tests.
package executor

// An Executor schedules a unit of background work to run to
// completion, independent of the caller's continued execution. There
// is no ordering guarantee between tasks, no result, and no way for
// scheduling itself to fail: an executor that cannot accept work is a
// configuration error, not a runtime condition.
//
// Implementations must be safe for concurrent use by multiple
// goroutines, and a single Executor value is shared by every component
// of the channel that spawns work.
type Executor interface {
	// Execute schedules task and returns. Whether task has started,
	// finished, or not yet run when Execute returns is implementation
	// defined.
	Execute(task func())
}

// Go is the default executor. It runs each task on its own goroutine.
var Go Executor = goExecutor(0)

type goExecutor int

func (goExecutor) Execute(task func()) {
	go task()
}

// Inline is an executor that runs each task synchronously on the
// calling goroutine, returning only when the task has finished.
//
// Inline makes scheduling deterministic for tests of short-lived
// tasks. Do not use it to build a channel: connection drivers run for
// the lifetime of their connection, and running one inline blocks the
// handshake that spawned it.
var Inline Executor = inlineExecutor(0)

type inlineExecutor int

func (inlineExecutor) Execute(task func()) {
	task()
}
