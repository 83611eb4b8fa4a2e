package storefront

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a small TTL cache for storefront responses, backed by redis.
// Storefront APIs are rate-limited and slow; the monitor and the deals
// endpoints hit the same URLs repeatedly. A nil cache (or nil client) is
// valid and caches nothing.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *Cache) Set(ctx context.Context, key string, val []byte) {
	if c == nil || c.rdb == nil {
		return
	}
	// best effort; a cache write failure is not worth surfacing
	_ = c.rdb.Set(ctx, key, val, c.ttl).Err()
}
