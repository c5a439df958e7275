// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package poll defines the readiness statuses shared by every component
// implementing the two-phase readiness/call contract.
package poll

// A Status is the result of a readiness check on a component that
// accepts requests.
//
// The zero value is Pending, so a component whose readiness state has
// not been established yet reports itself as not ready.
type Status int

const (
	// Pending means the component cannot accept a request right now and
	// the caller must repeat the readiness check later. Pending is
	// backpressure, not failure: a Pending component is expected to
	// become Ready once in-flight work completes or capacity frees up.
	Pending Status = iota
	// Ready means the component can accept exactly one request now.
	Ready
)

// String returns a short human-readable name for the status.
func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Ready:
		return "Ready"
	default:
		return "Unknown"
	}
}
