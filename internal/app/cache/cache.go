// Package cache provides a Redis-backed JSON cache for catalog reads. When no
// Redis address is configured the cache degrades to a pass-through that only
// counts misses, so the API works without it.
package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/stillpoint/serenity/pkg/logger"
)

// Cache stores JSON-encoded values with a TTL and tracks hit/miss counters.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Enabled bool  `json:"enabled"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Keys    int64 `json:"keys"`
}

// New connects to Redis and returns a cache. An empty addr returns the no-op
// cache.
func New(addr, password string, db int, ttl time.Duration, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.NewDefault("cache")
	}
	if addr == "" {
		return &Cache{log: log}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Cache{client: client, ttl: ttl, log: log}
}

// NewNoop returns a cache that never stores anything.
func NewNoop() *Cache {
	return &Cache{log: logger.NewDefault("cache")}
}

// Get unmarshals the cached value for key into dst and reports whether it was
// present. Redis failures count as misses; the caller falls through to the
// store.
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) bool {
	if c.client == nil {
		c.misses.Add(1)
		return false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).WithField("key", key).Warn("cache read failed")
		}
		c.misses.Add(1)
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache value corrupt, dropping")
		c.client.Del(ctx, key)
		c.misses.Add(1)
		return false
	}

	c.hits.Add(1)
	return true
}

// Set stores the value under key with the configured TTL. Failures are logged
// and otherwise ignored; the cache is best effort.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) {
	if c.client == nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

// InvalidatePrefix removes every key with the given prefix.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	if c.client == nil {
		return
	}

	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.WithError(err).WithField("key", iter.Val()).Warn("cache invalidation failed")
		}
	}
	if err := iter.Err(); err != nil {
		c.log.WithError(err).Warn("cache scan failed")
	}
}

// Stats returns current counters.
func (c *Cache) Stats(ctx context.Context) Stats {
	stats := Stats{
		Enabled: c.client != nil,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
	if c.client != nil {
		if n, err := c.client.DBSize(ctx).Result(); err == nil {
			stats.Keys = n
		}
	}
	return stats
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
