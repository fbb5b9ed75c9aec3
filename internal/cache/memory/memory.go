// Package memory implements cache.Client in-process, backed by go-cache.
package memory

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/authhub/authhub/internal/cache"
)

type Mem struct {
	c      *gocache.Cache
	prefix string
	// mu serializes GetDel; go-cache has no compound read-and-delete.
	mu sync.Mutex
}

// New creates an in-process cache client. Expired entries are purged
// every minute, but reads honor expiry immediately.
func New(prefix string) *Mem {
	return &Mem{
		c:      gocache.New(gocache.NoExpiration, time.Minute),
		prefix: prefix,
	}
}

func (m *Mem) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(m.prefix + key)
	if !ok {
		return "", cache.ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *Mem) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(m.prefix+key, value, ttl)
	return nil
}

func (m *Mem) Delete(_ context.Context, key string) error {
	m.c.Delete(m.prefix + key)
	return nil
}

func (m *Mem) GetDel(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(m.prefix + key)
	if !ok {
		return "", cache.ErrNotFound
	}
	m.c.Delete(m.prefix + key)
	s, _ := v.(string)
	return s, nil
}

func (m *Mem) TTL(_ context.Context, key string) (time.Duration, error) {
	_, exp, ok := m.c.GetWithExpiration(m.prefix + key)
	if !ok {
		return 0, cache.ErrNotFound
	}
	if exp.IsZero() {
		return 0, nil
	}
	d := time.Until(exp)
	if d < 0 {
		return 0, cache.ErrNotFound
	}
	return d, nil
}

func (m *Mem) Ping(context.Context) error { return nil }

func (m *Mem) Close() error { return nil }
