// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"

	"github.com/gorelay/conduit/executor"
	"github.com/gorelay/conduit/fault"
	"github.com/gorelay/conduit/poll"
)

// testServer is an in-process cleartext HTTP/2 server that keeps hold
// of its accepted raw connections so tests can kill them abruptly.
type testServer struct {
	addr  string
	ln    net.Listener
	mu    sync.Mutex
	conns []net.Conn
}

func newTestServer(t *testing.T, handler http.Handler) *testServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &testServer{addr: ln.Addr().String(), ln: ln}
	h2 := &http2.Server{}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns = append(s.conns, conn)
			s.mu.Unlock()
			go h2.ServeConn(conn, &http2.ServeConnOpts{Handler: handler})
		}
	}()
	t.Cleanup(s.close)
	return s
}

func (s *testServer) close() {
	s.ln.Close()
	s.killConns()
}

// killConns abruptly closes every raw connection accepted so far.
func (s *testServer) killConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.conns = nil
}

func (s *testServer) dial(t *testing.T) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.addr)
	require.NoError(t, err)
	return conn
}

func (s *testServer) request(t *testing.T, path string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://"+s.addr+path, nil)
	require.NoError(t, err)
	return req
}

func echoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "hello")
	})
}

func nopSettings() Settings {
	return Settings{Logger: zerolog.Nop()}
}

func TestHandshakeEstablishes(t *testing.T) {
	s := newTestServer(t, echoHandler())

	d, err := Handshake(context.Background(), s.dial(t), nopSettings(), executor.Go)

	require.NoError(t, err)
	defer d.Close()
	status, err := d.Ready()
	require.NoError(t, err)
	assert.Equal(t, poll.Ready, status)
	resp, err := d.Call(context.Background(), s.request(t, "/"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestHandshakeContextCanceled(t *testing.T) {
	s := newTestServer(t, echoHandler())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := Handshake(ctx, s.dial(t), nopSettings(), executor.Go)

	require.Error(t, err)
	assert.Nil(t, d)
	kind, ok := fault.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, fault.Transport, kind)
}

func TestHandshakeWriteFailure(t *testing.T) {
	srv, cli := net.Pipe()
	require.NoError(t, srv.Close())

	d, err := Handshake(context.Background(), cli, nopSettings(), executor.Go)

	require.Error(t, err)
	assert.Nil(t, d)
	kind, ok := fault.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, fault.Transport, kind)
}

func TestKeepAliveMaintainsConnection(t *testing.T) {
	s := newTestServer(t, echoHandler())
	settings := nopSettings()
	settings.KeepAliveInterval = 20 * time.Millisecond
	settings.KeepAliveWhileIdle = true

	d, err := Handshake(context.Background(), s.dial(t), settings, executor.Go)

	require.NoError(t, err)
	defer d.Close()
	// Several keep-alive periods pass; the pings are answered and the
	// connection stays usable.
	time.Sleep(150 * time.Millisecond)
	status, err := d.Ready()
	require.NoError(t, err)
	assert.Equal(t, poll.Ready, status)
}

func TestKeepAliveTimeoutKillsStalledConnection(t *testing.T) {
	// A stub server that completes the handshake, then swallows every
	// frame without ever answering a ping.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		preface := make([]byte, len(http2.ClientPreface))
		if _, err := io.ReadFull(conn, preface); err != nil {
			return
		}
		fr := http2.NewFramer(conn, conn)
		if err := fr.WriteSettings(); err != nil {
			return
		}
		for {
			if _, err := fr.ReadFrame(); err != nil {
				return
			}
		}
	}()
	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	settings := nopSettings()
	settings.KeepAliveInterval = 20 * time.Millisecond
	settings.KeepAliveTimeout = 50 * time.Millisecond
	settings.KeepAliveWhileIdle = true

	d, err := Handshake(context.Background(), conn, settings, executor.Go)

	require.NoError(t, err)
	defer d.Close()
	assert.Eventually(t, func() bool {
		_, err := d.Ready()
		return err != nil
	}, 5*time.Second, 10*time.Millisecond, "unanswered pings should kill the connection")
}
