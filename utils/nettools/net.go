// Package nettools inspects idle connections below the net.Conn surface.
package nettools

import (
	"net"
	"syscall"
)

// PeerClosed reports whether an idle connection has become unusable: the
// peer closed it, reset it, or sent bytes nobody asked for. Connections
// that expose no file descriptor are assumed healthy.
func PeerClosed(c net.Conn) bool {
	rc := connsToFD(c)
	if rc == nil {
		return false
	}
	closed := false
	if err := rc.Control(func(fd uintptr) {
		closed = readable(int(fd))
	}); err != nil {
		return true
	}
	return closed
}

func connsToFD(raw net.Conn) syscall.RawConn {
	if t, ok := raw.(interface{ NetConn() net.Conn }); ok {
		// is *tls.Conn or polyfilled TLS Connection
		raw = t.NetConn()
	}
	if c, ok := raw.(syscall.Conn); ok {
		if c, err := c.SyscallConn(); err == nil {
			return c
		}
	}
	return nil
}
