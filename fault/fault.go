// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package fault defines the closed error taxonomy used across the
// conduit transport stack.
//
// Every error surfaced by a channel, other than a caller's own context
// error wrapped as a cause, is a *fault.Error carrying one of the Kind
// values below. Callers branch on the kind with KindOf or errors.As,
// and reach the underlying cause chain with errors.Is, errors.As or
// errors.Unwrap as usual:
//
//	_, err := ch.Invoke(ctx, req)
//	if kind, ok := fault.KindOf(err); ok && kind == fault.Transport {
//		...
//	}
//	if errors.Is(err, context.DeadlineExceeded) {
//		...
//	}
package fault

import (
	"errors"
	"fmt"
)

// A Kind identifies one failure class in the closed taxonomy.
// Construction-time configuration mistakes get their own kinds;
// everything that goes wrong on the wire is Transport and is told
// apart by its cause, not its kind.
type Kind int

const (
	// Transport is the catch-all for connect, handshake, and I/O
	// failures. A Transport error always wraps an underlying cause.
	Transport Kind = iota
	// InvalidURI means the configured target could not be parsed as a
	// URI, or parsed into a shape the transport cannot dial.
	InvalidURI
	// InvalidUserAgent means the configured user agent string cannot be
	// encoded as a valid header field value.
	InvalidUserAgent
	// InvalidTLSForUDS means TLS was configured for a unix domain
	// socket target, a combination the transport does not support.
	InvalidTLSForUDS
)

// String returns the fixed description of the kind. The description is
// stable and safe to match on in logs.
func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport error"
	case InvalidURI:
		return "invalid URI"
	case InvalidUserAgent:
		return "user agent is not a valid header value"
	case InvalidTLSForUDS:
		return "cannot apply TLS config for unix domain socket"
	default:
		return "unknown transport fault"
	}
}

// An Error is a transport failure of a known Kind with an optional
// wrapped cause. Errors are immutable once constructed: they are only
// inspected or wrapped further, never modified.
type Error struct {
	kind  Kind
	cause error
}

// New constructs an Error of the given kind with no cause.
func New(kind Kind) *Error {
	return &Error{kind: kind}
}

// Wrap constructs an Error of the given kind wrapping cause. A nil
// cause is equivalent to New(kind).
func Wrap(kind Kind, cause error) *Error {
	return &Error{kind: kind, cause: cause}
}

// From wraps an arbitrary error as a Transport fault. If cause is
// already a *fault.Error of any kind it is returned unchanged, so
// wrapping at every level of a layered stack never buries the kind
// assigned closest to the failure.
func From(cause error) *Error {
	var fe *Error
	if errors.As(cause, &fe) {
		return fe
	}
	return &Error{kind: Transport, cause: cause}
}

// Kind returns the failure class of the error.
func (e *Error) Kind() Kind {
	return e.kind
}

// Error returns the kind's description, followed by the cause's own
// text when a cause is present.
func (e *Error) Error() string {
	if e.cause == nil {
		return e.kind.String()
	}
	return fmt.Sprintf("%s: %s", e.kind, e.cause)
}

// Unwrap returns the underlying cause, which may be nil.
func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the Kind from anywhere in err's chain. The second
// return value reports whether a *fault.Error was found at all.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind, true
	}
	return 0, false
}
