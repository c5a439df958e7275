// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorelay/conduit/fault"
	"github.com/gorelay/conduit/poll"
)

func TestConcurrencyLimitBackpressure(t *testing.T) {
	release := make(chan struct{})
	inner := newFakeHandler()
	inner.callFn = func(ctx context.Context, req *http.Request) (*http.Response, error) {
		<-release
		return okResponse(), nil
	}
	layer := newConcurrencyLimit(inner, 2)
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		go layer.Call(context.Background(), req)
	}
	require.Eventually(t, func() bool { return inner.callCount() == 2 },
		5*time.Second, 5*time.Millisecond)

	status, err := layer.Ready()
	require.NoError(t, err, "a full limiter is backpressure, not a failure")
	assert.Equal(t, poll.Pending, status)

	close(release)
	assert.Eventually(t, func() bool {
		status, err := layer.Ready()
		return err == nil && status == poll.Ready
	}, 5*time.Second, 5*time.Millisecond)
}

func TestConcurrencyLimitReleasesSlotOnError(t *testing.T) {
	inner := newFakeHandler()
	inner.callFn = func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return nil, fault.Wrap(fault.Transport, errors.New("stream reset"))
	}
	layer := newConcurrencyLimit(inner, 1)
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)

	_, err = layer.Call(context.Background(), req)
	require.Error(t, err)

	status, err := layer.Ready()
	require.NoError(t, err)
	assert.Equal(t, poll.Ready, status, "a failed call must give its slot back")
}

func TestConcurrencyLimitReleasesSlotOnCancellation(t *testing.T) {
	release := make(chan struct{})
	inner := newFakeHandler()
	inner.callFn = func(ctx context.Context, req *http.Request) (*http.Response, error) {
		<-release
		return okResponse(), nil
	}
	layer := newConcurrencyLimit(inner, 1)
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	go layer.Call(context.Background(), req)
	require.Eventually(t, func() bool { return inner.callCount() == 1 },
		5*time.Second, 5*time.Millisecond)

	// A second call gives up waiting for the slot.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = layer.Call(ctx, req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	kind, ok := fault.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, fault.Transport, kind)

	// The abandoned wait took nothing with it.
	close(release)
	assert.Eventually(t, func() bool {
		status, err := layer.Ready()
		return err == nil && status == poll.Ready
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, inner.callCount(), "the canceled call never reached the engine")
}

func TestConcurrencyLimitWaitReadyWakesWhenSlotFrees(t *testing.T) {
	release := make(chan struct{})
	inner := newFakeHandler()
	inner.callFn = func(ctx context.Context, req *http.Request) (*http.Response, error) {
		<-release
		return okResponse(), nil
	}
	layer := newConcurrencyLimit(inner, 1)
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	go layer.Call(context.Background(), req)
	require.Eventually(t, func() bool { return inner.callCount() == 1 },
		5*time.Second, 5*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- layer.WaitReady(context.Background()) }()

	select {
	case err := <-done:
		require.FailNowf(t, "returned early", "WaitReady returned %v with the limiter full", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "WaitReady never woke up")
	}
}

func TestConcurrencyLimitPassesInnerReadinessThrough(t *testing.T) {
	inner := newFakeHandler()
	layer := newConcurrencyLimit(inner, 4)

	inner.setStatus(poll.Pending)
	status, err := layer.Ready()
	require.NoError(t, err)
	assert.Equal(t, poll.Pending, status)

	boom := errors.New("engine gone")
	inner.setErr(boom)
	_, err = layer.Ready()
	assert.True(t, errors.Is(err, boom))
}
