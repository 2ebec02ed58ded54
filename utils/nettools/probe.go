package nettools

import (
	"net"
	"syscall"
)

// Alive reports whether an idle connection still looks usable. A false
// return means the peer closed the connection, an error is pending, or
// unexpected data arrived while the connection sat idle.
//
// The check is advisory: on platforms without a poll probe every
// connection is assumed alive and the caller finds out on first use.
func Alive(c net.Conn) bool {
	rc := rawConn(c)
	if rc == nil {
		return true
	}
	return probe(rc)
}

func rawConn(c net.Conn) syscall.RawConn {
	if t, ok := c.(interface{ NetConn() net.Conn }); ok {
		// *tls.Conn wraps the real socket
		c = t.NetConn()
	}
	sc, ok := c.(syscall.Conn)
	if !ok {
		return nil
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return nil
	}
	return rc
}
