// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"net"
	"time"
)

// funcConn is a [net.Conn] test double following the teacher's Func-double
// convention (netstub.FuncConn): every method call delegates to an
// optional function field, falling back to a harmless zero-value default
// when unset. Local to this package's tests since the teacher's own
// netstub/slogstub/tlsstub packages exist only to support its DNS
// resolver test surface (see DESIGN.md), which this spec has no use for.
type funcConn struct {
	ReadFunc            func([]byte) (int, error)
	WriteFunc           func([]byte) (int, error)
	CloseFunc           func() error
	LocalAddrFunc       func() net.Addr
	RemoteAddrFunc      func() net.Addr
	SetDeadlineFunc     func(time.Time) error
	SetReadDeadlineFunc func(time.Time) error
	SetWriteDeadlFunc   func(time.Time) error
}

var _ net.Conn = &funcConn{}

func (c *funcConn) Read(b []byte) (int, error) {
	if c.ReadFunc != nil {
		return c.ReadFunc(b)
	}
	return 0, nil
}

func (c *funcConn) Write(b []byte) (int, error) {
	if c.WriteFunc != nil {
		return c.WriteFunc(b)
	}
	return len(b), nil
}

func (c *funcConn) Close() error {
	if c.CloseFunc != nil {
		return c.CloseFunc()
	}
	return nil
}

func (c *funcConn) LocalAddr() net.Addr {
	if c.LocalAddrFunc != nil {
		return c.LocalAddrFunc()
	}
	return &net.TCPAddr{}
}

func (c *funcConn) RemoteAddr() net.Addr {
	if c.RemoteAddrFunc != nil {
		return c.RemoteAddrFunc()
	}
	return &net.TCPAddr{}
}

func (c *funcConn) SetDeadline(t time.Time) error {
	if c.SetDeadlineFunc != nil {
		return c.SetDeadlineFunc(t)
	}
	return nil
}

func (c *funcConn) SetReadDeadline(t time.Time) error {
	if c.SetReadDeadlineFunc != nil {
		return c.SetReadDeadlineFunc(t)
	}
	return nil
}

func (c *funcConn) SetWriteDeadline(t time.Time) error {
	if c.SetWriteDeadlFunc != nil {
		return c.SetWriteDeadlFunc(t)
	}
	return nil
}
