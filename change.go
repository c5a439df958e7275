// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

// A ChangeOp says what a discovery Change does to the member set.
type ChangeOp int

const (
	// Insert adds a member, or replaces the member already stored
	// under the same key.
	Insert ChangeOp = iota
	// Remove deletes the member stored under the key, if any.
	Remove
)

// String returns a short name for the operation.
func (op ChangeOp) String() string {
	switch op {
	case Insert:
		return "insert"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}

// A Change is one endpoint add or remove event from a discovery
// source. Conduit only consumes changes, it never produces them: the
// discovery mechanism, whatever it is, feeds a channel of Change
// values into a Pool and must preserve ordering between events for
// the same key.
type Change struct {
	// Op is what to do.
	Op ChangeOp
	// Key identifies the member. Opaque to conduit.
	Key string
	// Endpoint configures the member being inserted. Nil for Remove.
	Endpoint *Endpoint
}
