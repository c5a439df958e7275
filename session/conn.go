// Copyright 2026 The conduit Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"net"
	"sync"
)

// A watchedConn wraps the raw stream so connection death is observable
// as a closed channel. The protocol engine reads and writes through
// the wrapper; the first failure on either path, or a local Close,
// latches the terminal error and fires Done exactly once.
type watchedConn struct {
	net.Conn
	once sync.Once
	done chan struct{}
	err  error
}

func newWatchedConn(conn net.Conn) *watchedConn {
	return &watchedConn{Conn: conn, done: make(chan struct{})}
}

func (c *watchedConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if err != nil {
		c.fail(err)
	}
	return n, err
}

func (c *watchedConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	if err != nil {
		c.fail(err)
	}
	return n, err
}

func (c *watchedConn) Close() error {
	err := c.Conn.Close()
	c.fail(nil)
	return err
}

// Done is closed once the connection is dead, whether by peer action,
// I/O error, or local Close.
func (c *watchedConn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that killed the connection, or nil for a
// local Close. Valid only after Done is closed.
func (c *watchedConn) Err() error {
	return c.err
}

func (c *watchedConn) fail(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}
