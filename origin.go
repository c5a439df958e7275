// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gorelay/conduit/poll"
)

// addOrigin is the outermost policy layer. It stamps a fixed scheme
// and authority onto every outgoing request, so call sites may build
// requests with bare paths and the channel owns where they go.
// Readiness passes through untouched.
type addOrigin struct {
	inner  Handler
	scheme string
	host   string
}

func newAddOrigin(inner Handler, origin *url.URL) *addOrigin {
	return &addOrigin{inner: inner, scheme: origin.Scheme, host: origin.Host}
}

func (o *addOrigin) Ready() (poll.Status, error) {
	return o.inner.Ready()
}

func (o *addOrigin) WaitReady(ctx context.Context) error {
	return o.inner.WaitReady(ctx)
}

func (o *addOrigin) Call(ctx context.Context, req *http.Request) (*http.Response, error) {
	clone := req.Clone(ctx)
	clone.URL.Scheme = o.scheme
	clone.URL.Host = o.host
	clone.Host = o.host
	return o.inner.Call(ctx, clone)
}
