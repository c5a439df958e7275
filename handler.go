// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorelay/conduit/poll"
)

// ErrClosed is the cause carried by faults from a channel or pool
// that has been closed. Test for it with errors.Is.
var ErrClosed = errors.New("channel is closed")

// errNotReady is the cause carried by faults from calls issued
// without a prior Ready readiness check.
var errNotReady = errors.New("call issued before a Ready readiness check")

// A Handler is the two-phase request interface implemented by every
// component of a channel: the channel itself, each policy layer, the
// reconnect engine, and the per-connection dispatcher at the bottom.
//
// The contract has two phases. First the caller checks readiness,
// either non-blocking through Ready or blocking through WaitReady.
// Only after observing Ready may the caller issue exactly one Call;
// the next Call requires a fresh check. Pending is backpressure, not
// failure, and a caller seeing Pending simply checks again later. An
// error from a readiness check is a real failure: a connect attempt
// that failed, a dead connection, or a closed channel.
//
// Implementations must be safe for concurrent use. Two callers may
// both observe Ready and race their calls; the loser is queued
// downstream or fails cleanly, and no state is corrupted.
type Handler interface {
	// Ready performs a non-blocking readiness check.
	Ready() (poll.Status, error)

	// WaitReady blocks until a readiness check would return Ready,
	// the component fails terminally, or ctx ends. It returns nil
	// exactly when a call may be issued.
	WaitReady(ctx context.Context) error

	// Call sends one request and returns the response or a fault.
	// The request is never mutated; layers that adjust it operate on
	// a clone.
	Call(ctx context.Context, req *http.Request) (*http.Response, error)
}

// A Dispatcher is the per-connection request capability consumed by
// the reconnect engine: a Handler bound to exactly one established
// connection, plus the load and teardown operations the engine and
// balancer need. Once its connection dies every readiness check
// reports a terminal Transport fault; a Dispatcher is never repaired,
// only replaced.
type Dispatcher interface {
	Handler

	// Load reports the number of requests currently riding the
	// connection, as a coarse balancing metric.
	Load() int

	// Close tears the connection down, failing in-flight calls.
	Close() error
}
