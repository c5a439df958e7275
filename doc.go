// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package conduit provides the client-side transport channel for RPC
traffic over a multiplexed stream protocol: one logical, self-healing
connection per endpoint, with cross-cutting call policies layered
invisibly around it.

Create an Endpoint, tune it, and connect a Channel to begin making
calls.

	endpoint, err := conduit.NewEndpoint("https://svc.example.com:8443")
	...
	ch, err := endpoint.
		WithTimeout(5*time.Second).
		WithConcurrencyLimit(128).
		Connect(ctx)
	...
	resp, err := ch.Invoke(ctx, req)

Connect establishes the first connection eagerly, so an unreachable
server fails construction instead of the first call. Use Lazy to
defer all network activity to first use:

	ch, err := endpoint.Lazy()

Every component of a channel follows a two-phase contract: check
readiness, then issue exactly one call. Invoke bundles the two phases
for ordinary call sites; integrators placing their own policies above
the channel, such as a retry loop with backoff, drive the phases
directly:

	for {
		if err := ch.WaitReady(ctx); err != nil {
			...
		}
		resp, err := ch.Call(ctx, req)
		...
	}

A channel that loses its connection repairs itself on the next
readiness check, one dial per failure, with no pacing of its own.
The calls in flight when a connection dies fail with Transport
faults; they are never silently retried. Package fault defines the
error taxonomy and a Categorize helper for retry policies layered
above.

For many interchangeable endpoints fed by service discovery, a Pool
consumes Insert and Remove change events and spreads Invoke traffic
over the least-loaded member:

	changes := make(chan conduit.Change)
	pool := conduit.NewPool(changes, executor.Go, logger)

Raw stream establishment lives behind the connector.Connector
interface, and the goroutines a channel spawns are scheduled through
the executor.Executor interface; both have ready defaults and both
are replaceable per endpoint.
*/
package conduit
