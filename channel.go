// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorelay/conduit/fault"
	"github.com/gorelay/conduit/poll"
	"github.com/gorelay/conduit/session"
)

// A Channel is the reusable request-handling unit bound to one
// logical endpoint. Behind its uniform two-phase interface sits the
// configured policy stack wrapped around a reconnect engine: calls
// flow origin stamping, user-agent stamping, the per-call deadline,
// the concurrency cap and the rate budget, in that order, before
// reaching the connection. The channel survives connection loss by
// redialing on the next readiness check; call sites never see a
// difference between the first connection and the tenth.
//
// A Channel is safe for concurrent use and is meant to be long-lived:
// build one per endpoint and share it.
type Channel struct {
	handler Handler
	engine  *reconnect
	target  *url.URL
}

// Connect builds the channel and eagerly establishes its first
// connection, returning only once a full-stack readiness pass has
// succeeded, so a bad target or an unreachable server fails fast,
// here and not at the first call. The context bounds construction
// only, not the channel's lifetime.
func (e *Endpoint) Connect(ctx context.Context) (*Channel, error) {
	ch, err := e.Lazy()
	if err != nil {
		return nil, err
	}
	if err := ch.WaitReady(ctx); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return ch, nil
}

// Lazy builds the channel without any network activity. The first
// connection is established by the first readiness check, which the
// first Invoke performs implicitly. Configuration problems still
// surface here, before any dialing.
func (e *Endpoint) Lazy() (*Channel, error) {
	origin, err := e.validate()
	if err != nil {
		return nil, err
	}
	target := e.URI()
	conn := e.connector()
	exec := e.exec
	logger := e.logger.With().Str("target", target.String()).Logger()
	settings := e.settings()
	settings.Logger = logger

	dial := func(ctx context.Context) (Dispatcher, error) {
		stream, err := conn.Connect(ctx, target)
		if err != nil {
			return nil, fault.From(err)
		}
		d, err := session.Handshake(ctx, stream, settings, exec)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	engine := newReconnect(dial, exec, e.connectTimeout, logger)

	var handler Handler = engine
	if e.rateQuota > 0 && e.ratePeriod > 0 {
		handler = newRateLimit(handler, e.rateQuota, e.ratePeriod)
	}
	if e.concurrencyLimit > 0 {
		handler = newConcurrencyLimit(handler, e.concurrencyLimit)
	}
	if e.timeout > 0 {
		handler = newCallTimeout(handler, e.timeout)
	}
	if e.userAgent != "" {
		handler = newUserAgent(handler, e.userAgent)
	}
	handler = newAddOrigin(handler, origin)

	return &Channel{handler: handler, engine: engine, target: target}, nil
}

// Ready performs a non-blocking readiness check through the full
// stack. A lazy channel's first check triggers its first connect
// attempt.
func (c *Channel) Ready() (poll.Status, error) {
	return c.handler.Ready()
}

// WaitReady blocks until a call may be issued, the channel fails, or
// ctx ends.
func (c *Channel) WaitReady(ctx context.Context) error {
	return c.handler.WaitReady(ctx)
}

// Call sends one request through the stack. It must follow a Ready
// readiness check; most callers want Invoke instead.
func (c *Channel) Call(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.handler.Call(ctx, req)
}

// Invoke is the convenience form of the two-phase contract: it waits
// for readiness, then issues the call.
func (c *Channel) Invoke(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.WaitReady(ctx); err != nil {
		return nil, err
	}
	return c.Call(ctx, req)
}

// Load reports the number of requests riding the current connection,
// or zero when there is none. Balancers rank members with it.
func (c *Channel) Load() int {
	return c.engine.Load()
}

// Close releases the current connection, aborts any in-flight connect
// attempt, and makes the channel terminally unusable. Outstanding
// calls fail; subsequent readiness checks report a fault carrying
// ErrClosed.
func (c *Channel) Close() error {
	return c.engine.Close()
}

// String identifies the channel for debug output.
func (c *Channel) String() string {
	return fmt.Sprintf("Channel(%s)", c.target)
}

var _ Handler = (*Channel)(nil)
