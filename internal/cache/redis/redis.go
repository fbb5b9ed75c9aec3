// Package redis implements cache.Client on top of go-redis.
package redis

import (
	"context"
	"errors"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/authhub/authhub/internal/cache"
)

type Cache struct {
	c      *rdb.Client
	prefix string
}

// New creates a Redis-backed cache client.
func New(addr string, db int, prefix string) *Cache {
	return &Cache{
		c:      rdb.NewClient(&rdb.Options{Addr: addr, DB: db}),
		prefix: prefix,
	}
}

// Client exposes the underlying redis client (used by the rate limiter).
func (r *Cache) Client() *rdb.Client { return r.c }

func (r *Cache) Get(ctx context.Context, key string) (string, error) {
	s, err := r.c.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, rdb.Nil) {
		return "", cache.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return s, nil
}

func (r *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.c.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *Cache) Delete(ctx context.Context, key string) error {
	return r.c.Del(ctx, r.prefix+key).Err()
}

func (r *Cache) GetDel(ctx context.Context, key string) (string, error) {
	s, err := r.c.GetDel(ctx, r.prefix+key).Result()
	if errors.Is(err, rdb.Nil) {
		return "", cache.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return s, nil
}

func (r *Cache) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.c.TTL(ctx, r.prefix+key).Result()
	if err != nil {
		return 0, err
	}
	// go-redis keeps the sentinel replies raw: -2 => key missing, -1 => no expiry
	switch d {
	case time.Duration(-2):
		return 0, cache.ErrNotFound
	case time.Duration(-1):
		return 0, nil
	}
	return d, nil
}

func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) Close() error { return r.c.Close() }
