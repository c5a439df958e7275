// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package conduit

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpguts"

	"github.com/gorelay/conduit/connector"
	"github.com/gorelay/conduit/executor"
	"github.com/gorelay/conduit/fault"
	"github.com/gorelay/conduit/session"
)

// An Endpoint describes one logical target and every tuning knob for
// channels built against it. Construct with NewEndpoint, refine with
// the chainable With methods, then build a channel with Connect or
// Lazy:
//
//	endpoint, err := conduit.NewEndpoint("https://svc.example.com:8443")
//	if err != nil {
//		...
//	}
//	ch, err := endpoint.
//		WithTimeout(5 * time.Second).
//		WithConcurrencyLimit(64).
//		Connect(ctx)
//
// An Endpoint is not safe for concurrent mutation. Once a channel has
// been built from it, the channel holds copies of everything it
// needs; later changes to the Endpoint affect only channels built
// afterwards.
type Endpoint struct {
	uri              *url.URL
	origin           string
	userAgent        string
	timeout          time.Duration
	connectTimeout   time.Duration
	concurrencyLimit int
	rateQuota        int
	ratePeriod       time.Duration
	streamWindow     uint32
	connWindow       uint32
	adaptiveWindow   bool
	maxHeaderList    uint32
	keepAlive        time.Duration
	keepAliveTimeout time.Duration
	keepAliveIdle    bool
	tlsConfig        *tls.Config
	conn             connector.Connector
	exec             executor.Executor
	logger           zerolog.Logger
}

// NewEndpoint parses target and returns an Endpoint for it. The
// scheme must be http, https, or unix; http and https targets need a
// host. Anything else fails with an InvalidURI fault.
func NewEndpoint(target string) (*Endpoint, error) {
	uri, err := url.Parse(target)
	if err != nil {
		return nil, fault.Wrap(fault.InvalidURI, err)
	}
	switch uri.Scheme {
	case "http", "https":
		if uri.Host == "" {
			return nil, fault.Wrap(fault.InvalidURI, fmt.Errorf("target %q has no host", target))
		}
	case "unix":
		if uri.Path == "" && uri.Opaque == "" {
			return nil, fault.Wrap(fault.InvalidURI, fmt.Errorf("target %q has no socket path", target))
		}
	default:
		return nil, fault.Wrap(fault.InvalidURI, fmt.Errorf("target %q has unsupported scheme %q", target, uri.Scheme))
	}
	return &Endpoint{
		uri:    uri,
		exec:   executor.Go,
		logger: zerolog.Nop(),
	}, nil
}

// URI returns a copy of the parsed target.
func (e *Endpoint) URI() *url.URL {
	uri := *e.uri
	return &uri
}

// WithOrigin overrides the scheme and authority stamped onto every
// outgoing request. By default requests carry the target's own
// origin. The override is validated when a channel is built.
func (e *Endpoint) WithOrigin(origin string) *Endpoint {
	e.origin = origin
	return e
}

// WithUserAgent sets the User-Agent header value stamped onto every
// outgoing request. The value is validated when a channel is built;
// a value that cannot be encoded as a header field fails the build
// with an InvalidUserAgent fault.
func (e *Endpoint) WithUserAgent(userAgent string) *Endpoint {
	e.userAgent = userAgent
	return e
}

// WithTimeout bounds each call, including any time spent waiting for
// concurrency or rate capacity. A non-positive value disables the
// per-call deadline.
func (e *Endpoint) WithTimeout(timeout time.Duration) *Endpoint {
	e.timeout = timeout
	return e
}

// WithConnectTimeout bounds each connect attempt, covering both the
// dial and the protocol handshake. A non-positive value leaves
// attempts bounded only by the caller's context.
func (e *Endpoint) WithConnectTimeout(timeout time.Duration) *Endpoint {
	e.connectTimeout = timeout
	return e
}

// WithConcurrencyLimit caps the number of calls outstanding at once.
// Further calls see Pending readiness until a slot frees. A
// non-positive limit disables the cap.
func (e *Endpoint) WithConcurrencyLimit(limit int) *Endpoint {
	e.concurrencyLimit = limit
	return e
}

// WithRateLimit admits at most quota calls per rolling period.
// Exhausted budget surfaces as Pending readiness, never as an error.
// A non-positive quota or period disables rate limiting.
func (e *Endpoint) WithRateLimit(quota int, period time.Duration) *Endpoint {
	e.rateQuota = quota
	e.ratePeriod = period
	return e
}

// WithInitialStreamWindowSize sets the stream-level flow-control
// window, in bytes, recorded on each connection's session.
func (e *Endpoint) WithInitialStreamWindowSize(size uint32) *Endpoint {
	e.streamWindow = size
	return e
}

// WithInitialConnectionWindowSize sets the connection-level
// flow-control window, in bytes, recorded on each connection's
// session.
func (e *Endpoint) WithInitialConnectionWindowSize(size uint32) *Endpoint {
	e.connWindow = size
	return e
}

// WithAdaptiveWindow asks the session to size flow-control windows
// dynamically instead of using the fixed sizes.
func (e *Endpoint) WithAdaptiveWindow(enabled bool) *Endpoint {
	e.adaptiveWindow = enabled
	return e
}

// WithMaxHeaderListSize caps the advertised size, in bytes, of the
// header list the server may send on a response.
func (e *Endpoint) WithMaxHeaderListSize(size uint32) *Endpoint {
	e.maxHeaderList = size
	return e
}

// WithKeepAliveInterval makes each connection's driver ping the
// server on the given period. A non-positive interval disables
// keep-alive.
func (e *Endpoint) WithKeepAliveInterval(interval time.Duration) *Endpoint {
	e.keepAlive = interval
	return e
}

// WithKeepAliveTimeout bounds each keep-alive ping; a ping that
// misses it kills the connection. Defaults to
// session.DefaultKeepAliveTimeout.
func (e *Endpoint) WithKeepAliveTimeout(timeout time.Duration) *Endpoint {
	e.keepAliveTimeout = timeout
	return e
}

// WithKeepAliveWhileIdle extends keep-alive pinging to connections
// with no active calls. Without it an idle connection is left alone.
func (e *Endpoint) WithKeepAliveWhileIdle(enabled bool) *Endpoint {
	e.keepAliveIdle = enabled
	return e
}

// WithTLSConfig sets the TLS policy handed to the connector. TLS
// cannot be combined with a unix target; the build fails with an
// InvalidTLSForUDS fault.
func (e *Endpoint) WithTLSConfig(config *tls.Config) *Endpoint {
	e.tlsConfig = config
	return e
}

// WithConnector replaces the default dialer with a caller-supplied
// stream producer. The connector then owns all transport
// establishment, including TLS.
func (e *Endpoint) WithConnector(conn connector.Connector) *Endpoint {
	e.conn = conn
	return e
}

// WithExecutor replaces the executor used to spawn connection
// drivers and connect attempts. The default runs each task on its
// own goroutine.
func (e *Endpoint) WithExecutor(exec executor.Executor) *Endpoint {
	e.exec = exec
	return e
}

// WithLogger sets the logger for connection lifecycle events. The
// default discards everything.
func (e *Endpoint) WithLogger(logger zerolog.Logger) *Endpoint {
	e.logger = logger
	return e
}

// validate checks the configuration that cannot be rejected at
// NewEndpoint time. It runs before any network activity when a
// channel is built.
func (e *Endpoint) validate() (*url.URL, error) {
	if e.userAgent != "" && !httpguts.ValidHeaderFieldValue(e.userAgent) {
		return nil, fault.New(fault.InvalidUserAgent)
	}
	if e.uri.Scheme == "unix" && e.tlsConfig != nil {
		return nil, fault.New(fault.InvalidTLSForUDS)
	}
	origin := e.uri
	if e.uri.Scheme == "unix" {
		// The socket path is dialing detail; on the wire requests
		// carry a conventional http origin.
		origin = &url.URL{Scheme: "http", Host: "localhost"}
	}
	if e.origin != "" {
		parsed, err := url.Parse(e.origin)
		if err != nil {
			return nil, fault.Wrap(fault.InvalidURI, err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return nil, fault.Wrap(fault.InvalidURI, fmt.Errorf("origin %q is not absolute", e.origin))
		}
		origin = parsed
	}
	return origin, nil
}

// connector returns the configured stream producer, or the default
// dialer carrying the endpoint's TLS policy.
func (e *Endpoint) connector() connector.Connector {
	if e.conn != nil {
		return e.conn
	}
	return &connector.Dialer{TLSConfig: e.tlsConfig}
}

// settings assembles the per-connection session tuning.
func (e *Endpoint) settings() session.Settings {
	return session.Settings{
		InitialStreamWindow: e.streamWindow,
		InitialConnWindow:   e.connWindow,
		AdaptiveWindow:      e.adaptiveWindow,
		MaxHeaderListSize:   e.maxHeaderList,
		KeepAliveInterval:   e.keepAlive,
		KeepAliveTimeout:    e.keepAliveTimeout,
		KeepAliveWhileIdle:  e.keepAliveIdle,
		Logger:              e.logger,
	}
}
