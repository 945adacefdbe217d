package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// LayeredCache keeps recently used windows in process (L1) in front of a
// shared Redis instance (L2). Writes go through to Redis first.
type LayeredCache struct {
	mem    *MemoryCache
	redis  *RedisCache
	memTTL time.Duration

	l1Hits atomic.Int64
	l2Hits atomic.Int64
	misses atomic.Int64
}

// LayeredStats counts lookups by the layer that answered them.
type LayeredStats struct {
	L1Hits int64
	L2Hits int64
	Misses int64
}

// NewLayeredCache wraps rc with an in-memory L1.
func NewLayeredCache(rc *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		mem:    NewMemoryCache(cfg.Memory...),
		redis:  rc,
		memTTL: cfg.MemoryTTL,
	}
}

func (lc *LayeredCache) l1TTL(ttl time.Duration) time.Duration {
	if lc.memTTL > 0 && (ttl <= 0 || ttl > lc.memTTL) {
		return lc.memTTL
	}
	return ttl
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.redis.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, value, lc.l1TTL(expiration))
	return nil
}

// Get consults L1, then L2. An L2 hit is copied into L1 with the capped TTL.
func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.mem.Get(ctx, key, dest); err == nil {
		lc.l1Hits.Add(1)
		return nil
	}

	if err := lc.redis.Get(ctx, key, dest); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			lc.misses.Add(1)
		}
		return err
	}
	lc.l2Hits.Add(1)

	_ = lc.mem.Set(ctx, key, dest, lc.l1TTL(0))
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.redis.Delete(ctx, keys...)
}

func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	_ = lc.mem.DeleteByPattern(ctx, pattern)
	return lc.redis.DeleteByPattern(ctx, pattern)
}

// Stats returns lookup counters since construction.
func (lc *LayeredCache) Stats() LayeredStats {
	return LayeredStats{
		L1Hits: lc.l1Hits.Load(),
		L2Hits: lc.l2Hits.Load(),
		Misses: lc.misses.Load(),
	}
}

// Close closes both layers.
func (lc *LayeredCache) Close() error {
	_ = lc.mem.Close()
	return lc.redis.Close()
}
