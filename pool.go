// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gorelay/conduit/executor"
	"github.com/gorelay/conduit/fault"
	"github.com/gorelay/conduit/poll"
)

// errNoMembers is the cause carried by faults from a pool with no
// members to dispatch to.
var errNoMembers = errors.New("no endpoints in pool")

// A Pool balances calls across a set of member channels driven by a
// discovery change stream. Members are built lazily, so inserting an
// endpoint costs nothing until traffic picks it; each call goes to
// the member with the least load, with ties broken round-robin.
//
// The pool offers the same two-phase surface as a single channel, so
// call sites need not care whether they hold one endpoint or many.
type Pool struct {
	exec   executor.Executor
	logger zerolog.Logger
	sig    *poll.Signal

	mu      sync.Mutex
	members map[string]*Channel
	keys    []string
	next    int
	closed  bool
}

// NewPool builds a pool fed by the given change stream. The watcher
// consuming the stream runs on exec; it exits when the producer
// closes the stream. Closing the pool does not close the stream, that
// remains the producer's job.
func NewPool(changes <-chan Change, exec executor.Executor, logger zerolog.Logger) *Pool {
	p := &Pool{
		exec:    exec,
		logger:  logger,
		sig:     poll.NewSignal(),
		members: make(map[string]*Channel),
	}
	exec.Execute(func() { p.watch(changes) })
	return p
}

func (p *Pool) watch(changes <-chan Change) {
	for change := range changes {
		p.apply(change)
	}
	p.logger.Debug().Msg("discovery stream ended")
}

func (p *Pool) apply(change Change) {
	var evicted *Channel
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	switch change.Op {
	case Insert:
		if change.Endpoint == nil {
			p.mu.Unlock()
			p.logger.Warn().Str("key", change.Key).Msg("discovery insert without endpoint dropped")
			return
		}
		member, err := change.Endpoint.Lazy()
		if err != nil {
			p.mu.Unlock()
			p.logger.Warn().Err(err).Str("key", change.Key).Msg("discovery insert rejected")
			return
		}
		evicted = p.members[change.Key]
		p.members[change.Key] = member
		p.rebuildKeys()
	case Remove:
		evicted = p.members[change.Key]
		delete(p.members, change.Key)
		p.rebuildKeys()
	}
	p.mu.Unlock()
	if evicted != nil {
		_ = evicted.Close()
	}
	p.sig.Broadcast()
	p.logger.Debug().Str("key", change.Key).Stringer("op", change.Op).Msg("pool membership changed")
}

// rebuildKeys keeps a sorted key list for deterministic iteration.
// Caller holds p.mu.
func (p *Pool) rebuildKeys() {
	p.keys = p.keys[:0]
	for key := range p.members {
		p.keys = append(p.keys, key)
	}
	sort.Strings(p.keys)
}

// pick returns the least-loaded member, rotating the starting point
// so equally loaded members take turns. It returns nil when the pool
// has no members yet.
func (p *Pool) pick() (*Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fault.Wrap(fault.Transport, ErrClosed)
	}
	n := len(p.keys)
	if n == 0 {
		return nil, nil
	}
	offset := p.next % n
	p.next++
	var best *Channel
	bestLoad := 0
	for i := 0; i < n; i++ {
		member := p.members[p.keys[(offset+i)%n]]
		load := member.Load()
		if best == nil || load < bestLoad {
			best = member
			bestLoad = load
		}
	}
	return best, nil
}

// Ready reports whether some member could take a call now. An empty
// pool is Pending: discovery may be about to deliver members.
func (p *Pool) Ready() (poll.Status, error) {
	member, err := p.pick()
	if err != nil {
		return poll.Pending, err
	}
	if member == nil {
		return poll.Pending, nil
	}
	return member.Ready()
}

// WaitReady blocks until a member could take a call, the pool is
// closed, or ctx ends.
func (p *Pool) WaitReady(ctx context.Context) error {
	for {
		ch := p.sig.C()
		member, err := p.pick()
		if err != nil {
			return err
		}
		if member == nil {
			select {
			case <-ch:
				continue
			case <-ctx.Done():
				return fault.From(ctx.Err())
			}
		}
		err = member.WaitReady(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrClosed) && !p.isClosed() {
			// The member was evicted while we waited on it; try
			// whatever the pool holds now.
			continue
		}
		return err
	}
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Call dispatches one request to the least-loaded member.
func (p *Pool) Call(ctx context.Context, req *http.Request) (*http.Response, error) {
	member, err := p.pick()
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, fault.Wrap(fault.Transport, errNoMembers)
	}
	return member.Call(ctx, req)
}

// Invoke waits for a member to become ready, then dispatches the
// request to it.
func (p *Pool) Invoke(ctx context.Context, req *http.Request) (*http.Response, error) {
	for {
		member, err := p.pick()
		if err != nil {
			return nil, err
		}
		if member == nil {
			if err := p.WaitReady(ctx); err != nil {
				return nil, err
			}
			continue
		}
		resp, err := member.Invoke(ctx, req)
		if err != nil && errors.Is(err, ErrClosed) && !p.isClosed() {
			// The member was evicted before the request went out;
			// ErrClosed never escapes a dispatched call, so retrying
			// against the current membership cannot double-send.
			continue
		}
		return resp, err
	}
}

// Load reports the total load across all members.
func (p *Pool) Load() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, member := range p.members {
		total += member.Load()
	}
	return total
}

// Close closes every member and makes the pool terminally unusable.
// Changes still arriving from discovery are dropped.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	members := make([]*Channel, 0, len(p.members))
	for _, member := range p.members {
		members = append(members, member)
	}
	p.members = make(map[string]*Channel)
	p.keys = nil
	p.mu.Unlock()

	var first error
	for _, member := range members {
		if err := member.Close(); err != nil && first == nil {
			first = err
		}
	}
	p.sig.Broadcast()
	return first
}

var _ Handler = (*Pool)(nil)
