// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gorelay/conduit/executor"
	"github.com/gorelay/conduit/fault"
	"github.com/gorelay/conduit/poll"
)

// A dialFunc produces a live Dispatcher: dial plus handshake, bound
// together by the channel that builds the engine.
type dialFunc func(ctx context.Context) (Dispatcher, error)

// connState is the reconnect engine's state. Exactly one holds at a
// time, and every transition is driven by a readiness check or by
// Close, never by a background timer.
type connState int

const (
	// stateIdle: no connection and no attempt in flight. The next
	// readiness check starts one.
	stateIdle connState = iota
	// stateConnecting: a connect attempt is in flight.
	stateConnecting
	// stateConnected: a live dispatcher is current.
	stateConnected
	// stateFailed: the last attempt failed. The stored error is
	// returned from the next readiness check, which moves the engine
	// back to idle; the check after that dials again.
	stateFailed
	// stateClosed is terminal.
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	case stateFailed:
		return "failed"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// reconnect owns the connection lifecycle behind a channel: it dials
// on demand, caches the resulting dispatcher, and replaces it when a
// readiness check finds it dead. It performs exactly one attempt per
// failure, on the next readiness check, with no backoff of its own;
// retry pacing belongs to whatever the caller builds above the
// channel.
type reconnect struct {
	dial           dialFunc
	exec           executor.Executor
	connectTimeout time.Duration
	logger         zerolog.Logger
	sig            *poll.Signal

	// closeCtx parents every connect attempt; Close cancels it.
	closeCtx    context.Context
	closeCancel context.CancelFunc

	mu      sync.Mutex
	state   connState
	current Dispatcher
	lastErr error
}

func newReconnect(dial dialFunc, exec executor.Executor, connectTimeout time.Duration, logger zerolog.Logger) *reconnect {
	closeCtx, closeCancel := context.WithCancel(context.Background())
	return &reconnect{
		dial:           dial,
		exec:           exec,
		connectTimeout: connectTimeout,
		logger:         logger,
		sig:            poll.NewSignal(),
		closeCtx:       closeCtx,
		closeCancel:    closeCancel,
	}
}

// Ready drives the state machine one step and reports the outcome.
// Attempt and teardown tasks are scheduled only after the lock is
// released, so a synchronous executor cannot re-enter the engine.
func (r *reconnect) Ready() (poll.Status, error) {
	r.mu.Lock()
	switch r.state {
	case stateClosed:
		r.mu.Unlock()
		return poll.Pending, fault.Wrap(fault.Transport, ErrClosed)
	case stateIdle:
		attempt := r.begin()
		r.mu.Unlock()
		r.exec.Execute(attempt)
		return poll.Pending, nil
	case stateConnecting:
		r.mu.Unlock()
		return poll.Pending, nil
	case stateFailed:
		err := r.lastErr
		r.state = stateIdle
		r.mu.Unlock()
		return poll.Pending, err
	case stateConnected:
		status, err := r.current.Ready()
		if err == nil {
			r.mu.Unlock()
			return status, nil
		}
		// The connection died underneath the dispatcher. Drop the
		// stale handle and dial a replacement right away; the death
		// itself was already surfaced to that connection's callers.
		r.logger.Debug().Err(err).Msg("connection unusable, redialing")
		stale := r.current
		r.current = nil
		attempt := r.begin()
		r.mu.Unlock()
		r.exec.Execute(func() { _ = stale.Close() })
		r.exec.Execute(attempt)
		return poll.Pending, nil
	default:
		r.mu.Unlock()
		panic("conduit: invalid reconnect state")
	}
}

// begin transitions to connecting and returns the attempt task for the
// caller to hand to the executor once r.mu is released.
func (r *reconnect) begin() func() {
	r.state = stateConnecting
	ctx := r.closeCtx
	cancel := func() {}
	if r.connectTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.connectTimeout)
	}
	return func() {
		defer cancel()
		d, err := r.dial(ctx)
		r.finish(d, err)
	}
}

// finish records the outcome of a connect attempt.
func (r *reconnect) finish(d Dispatcher, err error) {
	r.mu.Lock()
	if r.state == stateClosed {
		r.mu.Unlock()
		if d != nil {
			_ = d.Close()
		}
		return
	}
	if err != nil {
		r.lastErr = fault.From(err)
		r.state = stateFailed
		r.logger.Debug().Err(err).Msg("connect attempt failed")
	} else {
		r.current = d
		r.state = stateConnected
		r.lastErr = nil
	}
	r.mu.Unlock()
	r.sig.Broadcast()
}

// snapshot returns the current dispatcher, or nil outside
// stateConnected.
func (r *reconnect) snapshot() Dispatcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == stateConnected {
		return r.current
	}
	return nil
}

func (r *reconnect) WaitReady(ctx context.Context) error {
	for {
		ch := r.sig.C()
		status, err := r.Ready()
		if err != nil {
			return err
		}
		if status == poll.Ready {
			return nil
		}
		if d := r.snapshot(); d != nil {
			// Connected but at capacity: wait on the connection
			// itself, then recheck through the engine.
			if err := d.WaitReady(ctx); err != nil && ctx.Err() != nil {
				return fault.From(ctx.Err())
			}
			continue
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return fault.From(ctx.Err())
		}
	}
}

// Call delegates to the current dispatcher. Calling without a prior
// Ready readiness check is a caller bug and is rejected with a
// Transport fault; calls racing a Close report ErrClosed instead,
// since the caller did nothing wrong.
func (r *reconnect) Call(ctx context.Context, req *http.Request) (*http.Response, error) {
	r.mu.Lock()
	closed := r.state == stateClosed
	d := r.current
	r.mu.Unlock()
	if closed {
		return nil, fault.Wrap(fault.Transport, ErrClosed)
	}
	if d == nil {
		return nil, fault.Wrap(fault.Transport, errNotReady)
	}
	return d.Call(ctx, req)
}

// Load reports the current connection's load, or zero when there is
// no connection.
func (r *reconnect) Load() int {
	if d := r.snapshot(); d != nil {
		return d.Load()
	}
	return 0
}

// Close makes the engine terminally unusable, cancels any in-flight
// connect attempt, and tears down the current connection.
func (r *reconnect) Close() error {
	r.mu.Lock()
	if r.state == stateClosed {
		r.mu.Unlock()
		return nil
	}
	d := r.current
	r.current = nil
	r.state = stateClosed
	r.mu.Unlock()
	r.closeCancel()
	var err error
	if d != nil {
		err = d.Close()
	}
	r.sig.Broadcast()
	return err
}
