package netpool

import (
	"context"
	"sync"
	"time"
)

// PoolGroup is a set of pools keyed by destination.
type PoolGroup struct {
	sync.RWMutex
	pools map[string]*Pool

	maxConnsPerHost, maxIdlePerHost uint
	maxIdleAge                      time.Duration
}

func NewGroup(maxConnsPerHost, maxIdlePerHost uint, maxIdleAge time.Duration) *PoolGroup {
	return &PoolGroup{
		pools:           map[string]*Pool{},
		maxConnsPerHost: maxConnsPerHost, maxIdlePerHost: maxIdlePerHost,
		maxIdleAge: maxIdleAge,
	}
}

func (g *PoolGroup) Get(ctx context.Context, key string, dial DialFunc) (Conn, error) {
	g.RLock()
	p, ok := g.pools[key]
	g.RUnlock()
	if ok {
		return p.Get(ctx, dial)
	}
	g.Lock()
	if p, ok = g.pools[key]; !ok {
		p = NewPool(g.maxIdlePerHost, g.maxConnsPerHost, g.maxIdleAge)
		g.pools[key] = p
	}
	g.Unlock()
	return p.Get(ctx, dial)
}
