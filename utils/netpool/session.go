package netpool

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/frankli0324/go-asks/internal/dialer"
	"github.com/frankli0324/go-asks/internal/model"
)

const (
	DefaultMaxConnsPerHost = 64
	DefaultMaxIdlePerHost  = 8
)

// Session hands out pooled connections keyed by origin. The zero value
// dials with a default *dialer.CoreDialer.
type Session struct {
	Dialer dialer.Dialer

	MaxConnsPerHost uint
	MaxIdlePerHost  uint
	// IdleTimeout drops idle connections older than this, zero keeps them.
	IdleTimeout time.Duration
	// DialRate limits new connections per second to each origin, zero
	// means unlimited.
	DialRate  rate.Limit
	DialBurst int

	Logger *slog.Logger

	once  sync.Once
	group *PoolGroup
}

func (s *Session) init() {
	s.once.Do(func() {
		if s.Dialer == nil {
			s.Dialer = &dialer.CoreDialer{}
		}
		conns, idle := s.MaxConnsPerHost, s.MaxIdlePerHost
		if conns == 0 {
			conns = DefaultMaxConnsPerHost
		}
		if idle == 0 {
			idle = DefaultMaxIdlePerHost
		}
		logger := s.Logger
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		s.group = NewGroup(Limits{
			MaxConns: conns, MaxIdle: idle,
			IdleTimeout: s.IdleTimeout,
			DialRate:    s.DialRate, DialBurst: s.DialBurst,
		}, logger)
	})
}

func (s *Session) Acquire(ctx context.Context, u *url.URL) (model.Conn, error) {
	s.init()
	key := u.Scheme + "://" + dialer.HostPort(u)
	c, err := s.group.Connect(ctx, key, func(ctx context.Context) (net.Conn, error) {
		s.group.logger.Debug("netpool: dialing", "origin", key)
		return s.Dialer.Dial(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Release pools c again, or closes it when it was marked inactive.
func (s *Session) Release(c model.Conn) {
	if pc, ok := c.(*Conn); ok {
		pc.pool.Release(pc)
	}
}

func (s *Session) Retire(c model.Conn) {
	if pc, ok := c.(*Conn); ok {
		pc.pool.Retire(pc)
	}
}

// Close drops every idle connection. Connections in use are closed when
// released.
func (s *Session) Close() {
	s.init()
	s.group.Close()
}
