// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http2"

	"github.com/gorelay/conduit/fault"
	"github.com/gorelay/conduit/poll"
)

// errSessionClosed is the terminal cause reported when the connection
// stopped accepting requests without an underlying I/O error, such as
// after a local Close or a graceful shutdown by the peer.
var errSessionClosed = errors.New("session closed")

// readyRecheck is how often a blocked WaitReady rechecks stream
// capacity. Capacity frees when the protocol engine's reader drains a
// completed stream, an event the engine does not surface, so waiting
// on completion broadcasts alone could miss it.
const readyRecheck = 50 * time.Millisecond

// A Dispatcher sends requests over exactly one established
// connection. It follows the two-phase contract: check Ready (or
// block in WaitReady) until the connection can accept a request, then
// Call once. A Dispatcher whose connection died reports a terminal
// Transport fault from every subsequent readiness check and is never
// usable again; replacing it is the reconnect engine's job, one level
// up.
type Dispatcher struct {
	cc       *http2.ClientConn
	conn     *watchedConn
	settings Settings
	logger   zerolog.Logger
	sig      *poll.Signal
}

// Ready reports whether the connection can accept a new request right
// now. Pending means stream capacity is exhausted and the check must
// be repeated later; an error means the connection is permanently
// unusable.
func (d *Dispatcher) Ready() (poll.Status, error) {
	select {
	case <-d.conn.Done():
		return poll.Pending, fault.Wrap(fault.Transport, d.terminalCause())
	default:
	}
	state := d.cc.State()
	if state.Closed || state.Closing {
		return poll.Pending, fault.Wrap(fault.Transport, d.terminalCause())
	}
	if !d.cc.CanTakeNewRequest() {
		return poll.Pending, nil
	}
	return poll.Ready, nil
}

// WaitReady blocks until the connection can accept a request, the
// connection dies, or ctx ends. It returns nil exactly when a call
// may be issued.
func (d *Dispatcher) WaitReady(ctx context.Context) error {
	for {
		ch := d.sig.C()
		status, err := d.Ready()
		if err != nil {
			return err
		}
		if status == poll.Ready {
			return nil
		}
		recheck := time.NewTimer(readyRecheck)
		select {
		case <-ch:
		case <-recheck.C:
		case <-ctx.Done():
			recheck.Stop()
			return fault.From(ctx.Err())
		}
		recheck.Stop()
	}
}

// Call sends one request over the connection and returns the response
// once headers arrive, or a Transport fault if the exchange fails.
// Call must only be issued after a Ready readiness check; a request
// issued without one may still be queued by the protocol engine, but
// the contract makes no promise about it.
//
// A failed call does not disturb other in-flight calls on the same
// connection unless the connection itself died.
func (d *Dispatcher) Call(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := d.cc.RoundTrip(req.WithContext(ctx))
	d.sig.Broadcast()
	if err != nil {
		return nil, fault.From(err)
	}
	return resp, nil
}

// Load returns the number of streams currently open or queued on the
// connection. It is a coarse balancing metric, not an exact gauge.
func (d *Dispatcher) Load() int {
	state := d.cc.State()
	return state.StreamsActive + state.StreamsPending
}

// Close tears the connection down. In-flight calls fail with a
// Transport fault; the driver exits. Close is safe to call more than
// once.
func (d *Dispatcher) Close() error {
	err := d.cc.Close()
	d.sig.Broadcast()
	return err
}

func (d *Dispatcher) terminalCause() error {
	if err := d.conn.Err(); err != nil {
		return err
	}
	return errSessionClosed
}

// drive is the connection's driver task. It supervises the connection
// and, when configured, sends keep-alive pings, killing the
// connection if a ping misses its timeout. It exits only when the
// connection is dead, logging the terminal condition.
func (d *Dispatcher) drive() {
	interval := d.settings.KeepAliveInterval
	timeout := d.settings.KeepAliveTimeout
	if timeout <= 0 {
		timeout = DefaultKeepAliveTimeout
	}
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-d.conn.Done():
			d.logger.Debug().Err(d.conn.Err()).Msg("connection driver exited")
			d.cc.Close()
			d.sig.Broadcast()
			return
		case <-tick:
			if !d.settings.KeepAliveWhileIdle && d.cc.State().StreamsActive == 0 {
				continue
			}
			pingCtx, cancel := context.WithTimeout(context.Background(), timeout)
			err := d.cc.Ping(pingCtx)
			cancel()
			if err != nil {
				d.logger.Debug().Err(err).Msg("keep-alive ping failed, closing connection")
				d.cc.Close()
			}
		}
	}
}
