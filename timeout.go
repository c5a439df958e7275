// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorelay/conduit/fault"
	"github.com/gorelay/conduit/poll"
)

// timeoutError is the cause carried by faults from calls that ran out
// of their per-call budget. It reports Timeout() true, so
// fault.Categorize files it with the other timeouts.
type timeoutError struct {
	limit time.Duration
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("call exceeded the %s deadline", e.limit)
}

func (e *timeoutError) Timeout() bool {
	return true
}

// callTimeout bounds every call with a deadline. It sits above the
// limiter layers, so the budget covers time spent waiting for
// concurrency slots and rate capacity, not just network time. Expiry
// surfaces as a Transport fault; cancellation of the abandoned inner
// exchange is best-effort through the call's context.
type callTimeout struct {
	inner Handler
	limit time.Duration
}

func newCallTimeout(inner Handler, limit time.Duration) *callTimeout {
	return &callTimeout{inner: inner, limit: limit}
}

func (t *callTimeout) Ready() (poll.Status, error) {
	return t.inner.Ready()
}

func (t *callTimeout) WaitReady(ctx context.Context) error {
	return t.inner.WaitReady(ctx)
}

func (t *callTimeout) Call(ctx context.Context, req *http.Request) (*http.Response, error) {
	bounded, cancel := context.WithTimeout(ctx, t.limit)
	defer cancel()
	resp, err := t.inner.Call(bounded, req)
	if err != nil && bounded.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return nil, fault.Wrap(fault.Transport, &timeoutError{limit: t.limit})
	}
	return resp, err
}
