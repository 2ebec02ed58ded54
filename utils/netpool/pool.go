// Package netpool keeps per-destination pools of reusable connections.
package netpool

import (
	"context"
	"io"
	"net"
	"time"
)

// Conn is a pooled connection. Release puts it back for reuse, Close
// discards it. Exactly one of the two must be called when the caller is
// done, or the pool ticket leaks.
type Conn interface {
	io.ReadWriteCloser
	Release()
	Raw() net.Conn
}

type DialFunc func(ctx context.Context) (net.Conn, error)

type Pool struct {
	tickets    chan struct{} // caps live connections
	idle       chan *conn
	maxIdleAge time.Duration
}

func NewPool(maxIdle, maxConn uint, maxIdleAge time.Duration) *Pool {
	return &Pool{
		tickets:    make(chan struct{}, maxConn),
		idle:       make(chan *conn, maxIdle),
		maxIdleAge: maxIdleAge,
	}
}

// Get hands out an idle connection when a usable one exists, otherwise
// dials a new one. Dialing blocks until a ticket is free or ctx is done.
func (p *Pool) Get(ctx context.Context, dial DialFunc) (Conn, error) {
	for {
		select {
		case c := <-p.idle:
			if p.stale(c) || !c.usable() {
				c.Close()
				continue
			}
			return c, nil
		default:
		}
		select {
		case p.tickets <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		raw, err := dial(ctx)
		if err != nil {
			<-p.tickets
			return nil, err
		}
		return &conn{raw: raw, p: p}, nil
	}
}

func (p *Pool) stale(c *conn) bool {
	return p.maxIdleAge != 0 && time.Since(c.lastIdle) > p.maxIdleAge
}

func (p *Pool) put(c *conn) {
	c.lastIdle = time.Now()
	select {
	case p.idle <- c:
	default:
		c.Close()
	}
}
