// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorelay/conduit/fault"
	"github.com/gorelay/conduit/poll"
)

// rateLimit admits at most quota calls per rolling period. Readiness
// reports Pending while the budget is exhausted; the budget entry for
// each admitted call ages out of the window on its own, so there is
// nothing to release. Exhaustion is backpressure, never an error.
type rateLimit struct {
	inner Handler
	mu    sync.Mutex
	win   *window
}

func newRateLimit(inner Handler, quota int, period time.Duration) *rateLimit {
	return &rateLimit{inner: inner, win: newWindow(quota, period)}
}

func (r *rateLimit) Ready() (poll.Status, error) {
	r.mu.Lock()
	open := r.win.open(time.Now())
	r.mu.Unlock()
	if !open {
		return poll.Pending, nil
	}
	return r.inner.Ready()
}

func (r *rateLimit) WaitReady(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		open := r.win.open(now)
		var wait time.Duration
		if !open {
			wait = r.win.nextOpen(now)
		}
		r.mu.Unlock()
		if open {
			return r.inner.WaitReady(ctx)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (r *rateLimit) Call(ctx context.Context, req *http.Request) (*http.Response, error) {
	for {
		r.mu.Lock()
		now := time.Now()
		admitted := r.win.accept(now)
		var wait time.Duration
		if !admitted {
			wait = r.win.nextOpen(now)
		}
		r.mu.Unlock()
		if admitted {
			return r.inner.Call(ctx, req)
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fault.From(ctx.Err())
	}
}

// A window is a rolling-window budget over the timestamps of admitted
// calls, kept in a fixed ring sized to the quota. A call is admitted
// when fewer than quota timestamps are younger than the period.
type window struct {
	period time.Duration
	stamps []time.Time
	start  int
	count  int
}

func newWindow(quota int, period time.Duration) *window {
	return &window{period: period, stamps: make([]time.Time, quota)}
}

// prune drops every timestamp at or beyond period age.
func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.period)
	for w.count > 0 {
		if w.stamps[w.start].After(cutoff) {
			break
		}
		w.start = (w.start + 1) % len(w.stamps)
		w.count--
	}
}

// open reports whether a call would currently be admitted.
func (w *window) open(now time.Time) bool {
	w.prune(now)
	return w.count < len(w.stamps)
}

// accept admits a call and records its timestamp, or reports false
// with the budget untouched.
func (w *window) accept(now time.Time) bool {
	w.prune(now)
	if w.count == len(w.stamps) {
		return false
	}
	w.stamps[(w.start+w.count)%len(w.stamps)] = now
	w.count++
	return true
}

// nextOpen returns how long until the oldest timestamp ages out. Only
// meaningful right after open or accept reported the budget closed.
func (w *window) nextOpen(now time.Time) time.Duration {
	if w.count < len(w.stamps) {
		return 0
	}
	return w.stamps[w.start].Add(w.period).Sub(now)
}
