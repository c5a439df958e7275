// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package poll

import "sync"

// A Signal broadcasts that something affecting readiness changed, so
// goroutines blocked in a WaitReady loop can recheck instead of
// polling. It carries no payload and never blocks the broadcaster.
//
// The waiting side must take the channel before rechecking its
// condition, so a broadcast between the recheck and the wait is not
// lost:
//
//	for {
//		ch := sig.C()
//		if ready() {
//			return nil
//		}
//		select {
//		case <-ch:
//		case <-ctx.Done():
//			return ctx.Err()
//		}
//	}
type Signal struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewSignal constructs a Signal with no pending broadcast.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// C returns a channel that is closed at the next Broadcast. Each
// Broadcast installs a fresh channel, so C must be called again after
// every wakeup.
func (s *Signal) C() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

// Broadcast wakes every goroutine currently waiting on a channel
// obtained from C.
func (s *Signal) Broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.ch)
	s.ch = make(chan struct{})
}
