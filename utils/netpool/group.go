package netpool

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limits applies to each pool of a group separately.
type Limits struct {
	MaxConns    uint // connections handed out at once
	MaxIdle     uint // connections kept for reuse
	IdleTimeout time.Duration
	DialRate    rate.Limit
	DialBurst   int
}

// PoolGroup lazily creates one Pool per origin key.
type PoolGroup struct {
	mu     sync.RWMutex
	pools  map[string]*Pool
	limits Limits
	logger *slog.Logger
}

func NewGroup(limits Limits, logger *slog.Logger) *PoolGroup {
	return &PoolGroup{pools: map[string]*Pool{}, limits: limits, logger: logger}
}

func (g *PoolGroup) pool(key string) *Pool {
	g.mu.RLock()
	p, ok := g.pools[key]
	g.mu.RUnlock()
	if ok {
		return p
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok = g.pools[key]; !ok {
		p = NewPool(g.limits, g.logger.With("origin", key))
		g.pools[key] = p
	}
	return p
}

func (g *PoolGroup) Connect(ctx context.Context, key string, dial func(ctx context.Context) (net.Conn, error)) (*Conn, error) {
	return g.pool(key).Connect(ctx, dial)
}

// Close closes every idle connection of the group.
func (g *PoolGroup) Close() {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, p := range g.pools {
		p.closeIdle()
	}
}
