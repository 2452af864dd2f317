package netpool

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"
)

// Conn is a pooled connection. It keeps its own read buffer so bytes read
// ahead survive between responses, and an active flag that decides whether
// the pool may hand it out again.
type Conn struct {
	conn     net.Conn
	br       *bufio.Reader
	pool     *Pool
	logger   *slog.Logger
	active   atomic.Bool
	inUse    atomic.Bool
	IsClosed uint32
	LastIdle time.Time
}

func newConn(c net.Conn, p *Pool, logger *slog.Logger) *Conn {
	conn := &Conn{conn: c, br: bufio.NewReader(c), pool: p, logger: logger}
	conn.active.Store(true)
	conn.inUse.Store(true)
	return conn
}

func (c *Conn) Active() bool {
	return c.active.Load() && c.Available()
}

func (c *Conn) SetActive(active bool) {
	c.active.Store(active)
}

func (c *Conn) Available() bool {
	return atomic.LoadUint32(&c.IsClosed) == 0
}

// IdleSince is when c was last returned to its pool, zero for a fresh
// connection.
func (c *Conn) IdleSince() time.Time {
	return c.LastIdle
}

func (c *Conn) Raw() net.Conn {
	return c.conn
}

func (c *Conn) Buffered() *bufio.Reader {
	return c.br
}

func (c *Conn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

func (c *Conn) Write(p []byte) (n int, err error) {
	n, err = c.conn.Write(p)
	if err != nil {
		if err != io.EOF {
			c.logger.Debug("netpool: error on write", "remote", c.conn.RemoteAddr(), "error", err)
		}
		c.active.Store(false)
	}
	return
}

func (c *Conn) Read(p []byte) (n int, err error) {
	nb, err := c.conn.Read(p)
	if err != nil {
		if err != io.EOF {
			c.logger.Debug("netpool: error on read", "remote", c.conn.RemoteAddr(), "error", err)
		}
		c.active.Store(false)
	}
	return nb, err
}

func (c *Conn) Close() error {
	if !atomic.CompareAndSwapUint32(&c.IsClosed, 0, 1) {
		return nil
	}
	return c.conn.Close()
}
