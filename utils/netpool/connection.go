package netpool

import (
	"io"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/transferlib/go-transfer/utils/nettools"
)

type conn struct {
	raw      net.Conn
	p        *Pool
	closed   atomic.Bool
	lastIdle time.Time
}

func (c *conn) usable() bool {
	return !c.closed.Load() && nettools.Alive(c.raw)
}

func (c *conn) Write(p []byte) (n int, err error) {
	n, err = c.raw.Write(p)
	if err != nil {
		if err != io.EOF {
			log.Printf("netpool: error on write. %v\n", err)
		}
		c.Close()
	}
	return
}

func (c *conn) Read(p []byte) (n int, err error) {
	n, err = c.raw.Read(p)
	if err != nil {
		if err != io.EOF {
			log.Printf("netpool: error on read. %v\n", err)
		}
		c.Close()
	}
	return
}

func (c *conn) Raw() net.Conn { return c.raw }

// Close discards the connection and frees its ticket.
func (c *conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	err := c.raw.Close()
	<-c.p.tickets
	return err
}

// Release returns a healthy connection to its pool for reuse.
func (c *conn) Release() {
	if c.closed.Load() {
		return
	}
	c.raw.SetDeadline(time.Time{})
	c.p.put(c)
}
