package cache

import (
	"context"
	"time"
)

// Store is a key-value cache the catalog reads through (cache-aside).
// Implementations must treat misses and backend failures the same way:
// return ok=false and let the caller fall through to the database.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

// Noop satisfies Store without caching anything. Used when REDIS_ADDR is
// not configured and in tests.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (n *Noop) Get(ctx context.Context, key string) ([]byte, bool) {
	return nil, false
}

func (n *Noop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {}

func (n *Noop) Delete(ctx context.Context, keys ...string) {}
