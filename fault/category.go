// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fault

import (
	"context"
	"errors"
	"syscall"
)

// A Category is a coarse classification of the cause chain inside a
// transport error, as reported by Categorize.
//
// The conduit core never retries anything, so categories carry no
// behavior here. They exist for integrators layering a retry or
// backoff policy above a channel: Timeout, ConnRefused and ConnReset
// are the causes with some prospect of success on a later attempt,
// while Canceled means the caller itself gave up.
type Category int

const (
	// Other covers nil errors and every cause the remaining categories
	// do not recognize.
	Other Category = iota
	// Canceled means the caller's context was canceled. Retrying on
	// behalf of a caller that walked away is never useful.
	Canceled
	// Timeout means the error, or any wrapped cause, reports a timeout
	// through a Timeout() bool method. This covers expired per-call
	// deadlines and network-level timeouts alike.
	Timeout
	// ConnRefused means some cause in the chain equals
	// syscall.ECONNREFUSED. The remote host was reachable but nothing
	// was listening, which is common while a service restarts.
	ConnRefused
	// ConnReset means some cause in the chain equals
	// syscall.ECONNRESET, the usual signature of a connection torn
	// down mid-exchange by the peer or an intermediary.
	ConnReset
)

// Categorize classifies the cause chain of err. It inspects wrapped
// causes, not just err itself. Temporary() methods are never
// consulted.
func Categorize(err error) Category {
	if err == nil {
		return Other
	}

	if errors.Is(err, context.Canceled) {
		return Canceled
	}

	var hasTimeout interface{ Timeout() bool }
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED:
			return ConnRefused
		case syscall.ECONNRESET:
			return ConnReset
		}
	}

	return Other
}
