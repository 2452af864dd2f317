package netpool

import (
	"context"
	"log/slog"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/frankli0324/go-asks/utils/nettools"
)

// Pool holds the connections of one origin. A slot in tickets is taken for
// every connection handed out, idle holds connections waiting for reuse.
type Pool struct {
	tickets     chan struct{}
	idle        chan *Conn
	idleTimeout time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
}

func NewPool(limits Limits, logger *slog.Logger) *Pool {
	p := &Pool{
		tickets:     make(chan struct{}, limits.MaxConns),
		idle:        make(chan *Conn, limits.MaxIdle),
		idleTimeout: limits.IdleTimeout,
		logger:      logger,
	}
	if limits.DialRate > 0 {
		p.limiter = rate.NewLimiter(limits.DialRate, max(limits.DialBurst, 1))
	}
	return p
}

// Connect hands out an idle connection that is still usable, or dials a
// new one. It blocks while the pool is at its connection limit.
func (p *Pool) Connect(ctx context.Context, dial func(ctx context.Context) (net.Conn, error)) (*Conn, error) {
	select {
	case p.tickets <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if c := p.reusable(); c != nil {
		c.inUse.Store(true)
		return c, nil
	}
	raw, err := p.dial(ctx, dial)
	if err != nil {
		<-p.tickets
		return nil, err
	}
	return newConn(raw, p, p.logger), nil
}

// reusable pops idle connections until one passes the staleness checks.
func (p *Pool) reusable() *Conn {
	for {
		var c *Conn
		select {
		case c = <-p.idle:
		default:
			return nil
		}
		switch {
		case p.idleTimeout > 0 && time.Since(c.LastIdle) > p.idleTimeout:
			p.logger.Debug("netpool: idle connection expired", "remote", c.conn.RemoteAddr())
		case !c.Active(), c.br.Buffered() > 0, nettools.PeerClosed(c.conn):
			p.logger.Debug("netpool: dropping stale connection", "remote", c.conn.RemoteAddr())
		default:
			return c
		}
		c.Close()
	}
}

func (p *Pool) dial(ctx context.Context, dial func(ctx context.Context) (net.Conn, error)) (net.Conn, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return dial(ctx)
}

// Release returns c to the idle set when it is still active, and closes it
// otherwise.
func (p *Pool) Release(c *Conn) {
	if !c.inUse.CompareAndSwap(true, false) {
		return
	}
	<-p.tickets
	if !c.Active() {
		c.Close()
		return
	}
	c.LastIdle = time.Now()
	select {
	case p.idle <- c:
	default:
		c.Close()
	}
}

// Retire closes c for good.
func (p *Pool) Retire(c *Conn) {
	c.SetActive(false)
	p.Release(c)
	c.Close()
}

func (p *Pool) closeIdle() {
	for {
		select {
		case c := <-p.idle:
			c.Close()
		default:
			return
		}
	}
}
