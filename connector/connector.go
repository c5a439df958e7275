// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package connector produces the duplex byte streams a channel
// multiplexes its requests over.
//
// The Connector interface is the seam between a channel and the
// network: a channel never opens sockets itself, it asks its connector
// for a stream and hands the result to the protocol handshake. The
// zero value of Dialer is the default implementation, speaking plain
// TCP, TLS over TCP, and unix domain sockets.
package connector

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"

	"github.com/gorelay/conduit/fault"
)

// A Connector asynchronously produces a duplex byte stream to the
// given target, or fails with an error the caller converts into the
// transport error taxonomy. The stream's content is never inspected
// by the connector's callers until the protocol handshake runs on it.
//
// Implementations must be safe for concurrent use by multiple
// goroutines: a channel may dial while an older stream is still being
// torn down, and a balancer façade shares one connector across
// members.
type Connector interface {
	// Connect dials target and returns the established stream. The
	// context bounds the whole attempt, including any TLS handshake.
	// On error no stream is returned and nothing is left open.
	Connect(ctx context.Context, target *url.URL) (net.Conn, error)
}

// A Dialer is the default Connector. The zero value dials plain TCP
// for http targets and unix domain sockets for unix targets. Setting
// TLSConfig, or using an https target, wraps TCP connections in TLS.
type Dialer struct {
	// TLSConfig, when non-nil, is cloned and applied to every TCP
	// connection. A nil TLSConfig still yields TLS for https targets,
	// using the system trust store. If the config carries no
	// ServerName it is derived from the target host, and if it
	// carries no ALPN protocols the multiplexed-stream protocol "h2"
	// is requested.
	TLSConfig *tls.Config

	// NetDialer customizes low-level dialing behavior such as the
	// local address or the OS-level keep-alive period. The zero value
	// is ready to use.
	NetDialer net.Dialer
}

var _ Connector = (*Dialer)(nil)

// Connect implements Connector.
func (d *Dialer) Connect(ctx context.Context, target *url.URL) (net.Conn, error) {
	switch target.Scheme {
	case "unix":
		return d.connectUnix(ctx, target)
	case "http", "https":
		return d.connectTCP(ctx, target)
	default:
		return nil, fault.Wrap(fault.InvalidURI, fmt.Errorf("unsupported scheme %q", target.Scheme))
	}
}

func (d *Dialer) connectUnix(ctx context.Context, target *url.URL) (net.Conn, error) {
	if d.TLSConfig != nil {
		return nil, fault.New(fault.InvalidTLSForUDS)
	}
	path := target.Path
	if path == "" {
		path = target.Opaque
	}
	return d.NetDialer.DialContext(ctx, "unix", path)
}

func (d *Dialer) connectTCP(ctx context.Context, target *url.URL) (net.Conn, error) {
	useTLS := d.TLSConfig != nil || target.Scheme == "https"
	addr := net.JoinHostPort(target.Hostname(), port(target))
	conn, err := d.NetDialer.DialContext(ctx, "tcp", addr)
	if err != nil || !useTLS {
		return conn, err
	}

	cfg := d.TLSConfig.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = target.Hostname()
	}
	if len(cfg.NextProtos) == 0 {
		cfg.NextProtos = []string{"h2"}
	}
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// port returns the explicit port of the target, or the default port
// of its scheme.
func port(target *url.URL) string {
	if p := target.Port(); p != "" {
		return p
	}
	if target.Scheme == "https" {
		return "443"
	}
	return "80"
}
