//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: observeconn.go (teacher's ObserveConnFunc I/O observer)
//

package webhouse

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/safeconn"
)

// NewConnectionFunc returns a new [*ConnectionFunc] wired from rt and a
// logger scoped to the owning endpoint.
func NewConnectionFunc(rt *Runtime, logger Logger) *ConnectionFunc {
	return &ConnectionFunc{
		ErrClassifier: rt.ErrClassifier,
		Logger:        logger,
		TimeNow:       rt.TimeNow,
	}
}

// ConnectionFunc wraps an accepted [net.Conn] into a [*Connection], the
// connection context every endpoint hands its protocol server: the socket,
// its origin address, and a per-connection logger id, plus structured
// logging of every I/O operation. Generalizes the teacher's ObserveConnFunc
// from a client-dialing pipeline stage to the server-side accept path; for
// responsive cleanup on endpoint stop, compose with [CancelWatchFunc].
type ConnectionFunc struct {
	// ErrClassifier classifies errors for structured logging.
	ErrClassifier ErrClassifier

	// Logger is scoped to the endpoint; each [Connection] derives its own
	// id from it but logs through the same scope.
	Logger Logger

	// TimeNow returns the current time (overridable for tests).
	TimeNow func() time.Time
}

var _ Func[net.Conn, net.Conn] = &ConnectionFunc{}

// Call wraps conn into a [*Connection] carrying a freshly minted id.
func (op *ConnectionFunc) Call(ctx context.Context, conn net.Conn) (net.Conn, error) {
	return &Connection{
		conn:     conn,
		id:       op.Logger.NewId(),
		laddr:    safeconn.LocalAddr(conn),
		op:       op,
		protocol: safeconn.Network(conn),
		raddr:    safeconn.RemoteAddr(conn),
	}, nil
}

// Connection is the connection context described by the server's accept
// path: a socket, its origin (remote) address, and a per-connection
// logger id that every request and log line derived from this connection
// carries. It implements [net.Conn] so protocol servers can use it as a
// drop-in replacement for the raw accepted socket.
type Connection struct {
	closeonce sync.Once
	conn      net.Conn
	id        string
	laddr     string
	op        *ConnectionFunc
	protocol  string
	raddr     string
}

// ID returns the connection's logger id, propagated into every request
// and log event derived from this connection.
func (c *Connection) ID() string { return c.id }

// OriginAddr returns the connection's remote (client) address.
func (c *Connection) OriginAddr() string { return c.raddr }

// Close implements [net.Conn]. Subsequent calls return [net.ErrClosed].
func (c *Connection) Close() (err error) {
	err = net.ErrClosed
	c.closeonce.Do(func() {
		t0 := c.op.TimeNow()
		c.op.Logger.Event("closeStart",
			"connId", c.id,
			"localAddr", c.laddr,
			"protocol", c.protocol,
			"remoteAddr", c.raddr,
			"t", t0,
		)

		err = c.conn.Close()

		c.op.Logger.Event("closeDone",
			"connId", c.id,
			"err", err,
			"errClass", c.op.ErrClassifier.Classify(err),
			"localAddr", c.laddr,
			"protocol", c.protocol,
			"remoteAddr", c.raddr,
			"t0", t0,
			"t", c.op.TimeNow(),
		)
	})
	return
}

// LocalAddr implements [net.Conn].
func (c *Connection) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// Read implements [net.Conn].
func (c *Connection) Read(buf []byte) (int, error) {
	t0 := c.op.TimeNow()
	c.op.Logger.Event("readStart",
		"connId", c.id,
		"ioBufferSize", len(buf),
		"localAddr", c.laddr,
		"protocol", c.protocol,
		"remoteAddr", c.raddr,
		"t", t0,
	)

	count, err := c.conn.Read(buf)

	c.op.Logger.Event("readDone",
		"connId", c.id,
		"ioBytesCount", count,
		"err", err,
		"errClass", c.op.ErrClassifier.Classify(err),
		"localAddr", c.laddr,
		"protocol", c.protocol,
		"remoteAddr", c.raddr,
		"t0", t0,
		"t", c.op.TimeNow(),
	)

	return count, err
}

// RemoteAddr implements [net.Conn].
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// SetDeadline implements [net.Conn].
func (c *Connection) SetDeadline(t time.Time) error {
	c.op.Logger.Event("setDeadline",
		"connId", c.id,
		"deadline", t,
		"localAddr", c.laddr,
		"protocol", c.protocol,
		"remoteAddr", c.raddr,
		"t", c.op.TimeNow(),
	)
	return c.conn.SetDeadline(t)
}

// SetReadDeadline implements [net.Conn].
func (c *Connection) SetReadDeadline(t time.Time) error {
	c.op.Logger.Event("setReadDeadline",
		"connId", c.id,
		"deadline", t,
		"localAddr", c.laddr,
		"protocol", c.protocol,
		"remoteAddr", c.raddr,
		"t", c.op.TimeNow(),
	)
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline implements [net.Conn].
func (c *Connection) SetWriteDeadline(t time.Time) error {
	c.op.Logger.Event("setWriteDeadline",
		"connId", c.id,
		"deadline", t,
		"localAddr", c.laddr,
		"protocol", c.protocol,
		"remoteAddr", c.raddr,
		"t", c.op.TimeNow(),
	)
	return c.conn.SetWriteDeadline(t)
}

// Write implements [net.Conn].
func (c *Connection) Write(data []byte) (n int, err error) {
	t0 := c.op.TimeNow()
	c.op.Logger.Event("writeStart",
		"connId", c.id,
		"ioBufferSize", len(data),
		"localAddr", c.laddr,
		"protocol", c.protocol,
		"remoteAddr", c.raddr,
		"t", t0,
	)

	count, err := c.conn.Write(data)

	c.op.Logger.Event("writeDone",
		"connId", c.id,
		"ioBytesCount", count,
		"err", err,
		"errClass", c.op.ErrClassifier.Classify(err),
		"localAddr", c.laddr,
		"protocol", c.protocol,
		"remoteAddr", c.raddr,
		"t0", t0,
		"t", c.op.TimeNow(),
	)

	return count, err
}
