// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"context"
	"net/http"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/gorelay/conduit/fault"
	"github.com/gorelay/conduit/poll"
)

// concurrencyLimit caps the number of calls outstanding at once.
// Readiness reports Pending while the cap is reached; the slot taken
// by each admitted call is released on every exit path, success or
// failure or cancellation. Exhaustion is backpressure, never an
// error.
type concurrencyLimit struct {
	inner       Handler
	sem         *semaphore.Weighted
	limit       int64
	outstanding atomic.Int64
	sig         *poll.Signal
}

func newConcurrencyLimit(inner Handler, limit int) *concurrencyLimit {
	return &concurrencyLimit{
		inner: inner,
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: int64(limit),
		sig:   poll.NewSignal(),
	}
}

func (c *concurrencyLimit) Ready() (poll.Status, error) {
	if c.outstanding.Load() >= c.limit {
		return poll.Pending, nil
	}
	return c.inner.Ready()
}

func (c *concurrencyLimit) WaitReady(ctx context.Context) error {
	for {
		ch := c.sig.C()
		if c.outstanding.Load() < c.limit {
			return c.inner.WaitReady(ctx)
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return fault.From(ctx.Err())
		}
	}
}

func (c *concurrencyLimit) Call(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fault.From(err)
	}
	c.outstanding.Add(1)
	defer func() {
		c.outstanding.Add(-1)
		c.sem.Release(1)
		c.sig.Broadcast()
	}()
	return c.inner.Call(ctx, req)
}
