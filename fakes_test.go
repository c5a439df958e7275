// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorelay/conduit/fault"
	"github.com/gorelay/conduit/poll"
)

// fakeHandler is a scriptable Handler for layer tests. Its readiness
// is set directly; calls are recorded and answered by callFn, or with
// a plain 200 when no callFn is set.
type fakeHandler struct {
	mu      sync.Mutex
	status  poll.Status
	err     error
	sig     *poll.Signal
	calls   int
	lastReq *http.Request
	lastCtx context.Context
	callFn  func(ctx context.Context, req *http.Request) (*http.Response, error)
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{status: poll.Ready, sig: poll.NewSignal()}
}

func (f *fakeHandler) setStatus(status poll.Status) {
	f.mu.Lock()
	f.status = status
	f.mu.Unlock()
	f.sig.Broadcast()
}

func (f *fakeHandler) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	f.sig.Broadcast()
}

func (f *fakeHandler) Ready() (poll.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.err
}

func (f *fakeHandler) WaitReady(ctx context.Context) error {
	for {
		ch := f.sig.C()
		status, err := f.Ready()
		if err != nil {
			return err
		}
		if status == poll.Ready {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return fault.From(ctx.Err())
		}
	}
}

func (f *fakeHandler) Call(ctx context.Context, req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.lastCtx = ctx
	fn := f.callFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return okResponse(), nil
}

func (f *fakeHandler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeHandler) last() (*http.Request, context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq, f.lastCtx
}

// fakeDispatcher extends fakeHandler into a scriptable Dispatcher for
// engine tests.
type fakeDispatcher struct {
	fakeHandler
	load   atomic.Int32
	closed atomic.Bool
}

func newFakeDispatcher() *fakeDispatcher {
	d := &fakeDispatcher{}
	d.status = poll.Ready
	d.sig = poll.NewSignal()
	return d
}

func (d *fakeDispatcher) Load() int {
	return int(d.load.Load())
}

func (d *fakeDispatcher) Close() error {
	d.closed.Store(true)
	d.setErr(fault.Wrap(fault.Transport, errSessionGone))
	return nil
}

var errSessionGone = io.ErrClosedPipe

// countingExecutor runs tasks on goroutines while counting how many
// were scheduled through it.
type countingExecutor struct {
	scheduled atomic.Int32
}

func (e *countingExecutor) Execute(task func()) {
	e.scheduled.Add(1)
	go task()
}

func okResponse() *http.Response {
	return &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Proto:      "HTTP/2.0",
		ProtoMajor: 2,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("ok")),
	}
}
