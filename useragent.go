// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"context"
	"net/http"

	"github.com/gorelay/conduit/poll"
)

// userAgent stamps a fixed, pre-validated User-Agent value onto every
// outgoing request, replacing whatever the caller set. The value was
// checked at channel build time, so the layer itself cannot fail.
type userAgent struct {
	inner Handler
	value string
}

func newUserAgent(inner Handler, value string) *userAgent {
	return &userAgent{inner: inner, value: value}
}

func (u *userAgent) Ready() (poll.Status, error) {
	return u.inner.Ready()
}

func (u *userAgent) WaitReady(ctx context.Context) error {
	return u.inner.WaitReady(ctx)
}

func (u *userAgent) Call(ctx context.Context, req *http.Request) (*http.Response, error) {
	clone := req.Clone(ctx)
	clone.Header.Set("User-Agent", u.value)
	return u.inner.Call(ctx, clone)
}
