// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package session performs the protocol handshake over an established
// byte stream and exposes the resulting per-connection dispatcher.
//
// A session is one HTTP/2 connection. Handshake turns a net.Conn into
// a Dispatcher bound to that connection, and spawns the connection's
// driver on the supplied executor. The driver supervises the
// connection and sends keep-alive pings until the connection dies;
// its terminal condition is logged, never returned, because callers
// observe it as readiness failures on the Dispatcher instead.
package session

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"

	"github.com/gorelay/conduit/executor"
	"github.com/gorelay/conduit/fault"
	"github.com/gorelay/conduit/poll"
)

// DefaultKeepAliveTimeout bounds a keep-alive ping when Settings give
// an interval but no timeout.
const DefaultKeepAliveTimeout = 20 * time.Second

// Settings tune one connection's protocol session. The zero value
// disables keep-alive and leaves protocol limits at the engine's
// defaults.
type Settings struct {
	// InitialStreamWindow and InitialConnWindow are the stream- and
	// connection-level flow-control window sizes, in bytes, and
	// AdaptiveWindow requests dynamic sizing from observed bandwidth
	// and latency. The current protocol engine sizes its own windows
	// internally; the values are recorded on the session for engines
	// that accept them.
	InitialStreamWindow uint32
	InitialConnWindow   uint32
	AdaptiveWindow      bool

	// MaxHeaderListSize caps the advertised size, in bytes, of the
	// header list the peer may send. Zero means the engine default.
	MaxHeaderListSize uint32

	// KeepAliveInterval makes the driver ping the peer on that period.
	// Zero disables keep-alive entirely. KeepAliveTimeout bounds each
	// ping (DefaultKeepAliveTimeout when zero); a ping that misses
	// its timeout kills the connection. KeepAliveWhileIdle extends
	// pinging to connections with no active streams.
	KeepAliveInterval  time.Duration
	KeepAliveTimeout   time.Duration
	KeepAliveWhileIdle bool

	// Logger receives the session's debug events. Use zerolog.Nop to
	// silence them.
	Logger zerolog.Logger
}

// Handshake performs the protocol handshake over conn and returns the
// connection's Dispatcher. The driver task is handed to exec before
// Handshake returns; it runs until the connection closes or fails. On
// handshake failure conn is closed and a Transport fault wrapping the
// cause is returned.
func Handshake(ctx context.Context, conn net.Conn, settings Settings, exec executor.Executor) (*Dispatcher, error) {
	if err := ctx.Err(); err != nil {
		conn.Close()
		return nil, fault.Wrap(fault.Transport, err)
	}

	wc := newWatchedConn(conn)
	transport := &http2.Transport{
		AllowHTTP:         true,
		MaxHeaderListSize: settings.MaxHeaderListSize,
	}
	cc, err := transport.NewClientConn(wc)
	if err != nil {
		wc.Close()
		return nil, fault.Wrap(fault.Transport, err)
	}

	d := &Dispatcher{
		cc:       cc,
		conn:     wc,
		settings: settings,
		logger:   settings.Logger.With().Str("conn_id", uuid.NewString()).Logger(),
		sig:      poll.NewSignal(),
	}
	d.logger.Debug().Str("peer", conn.RemoteAddr().String()).Msg("session established")
	exec.Execute(d.drive)
	return d, nil
}
