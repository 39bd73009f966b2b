// Package dedup provides a best-effort, never-authoritative idempotency
// cache: a Redis SETNX short-circuit that skips re-processing a message
// id the worker has already completed, bounded by a TTL so a crash mid-
// processing doesn't permanently block legitimate redelivery. The
// database remains the source of truth for whether a file was actually
// validated — this cache only trims duplicate work, it never decides
// correctness.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache marks message ids as seen for a bounded window.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewCache wraps an already-connected redis.Client.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{client: client, ttl: ttl, prefix: "assetvalidator:seen:"}
}

// MarkIfNew atomically records id as seen and reports whether this call
// was the first to see it. A Redis error degrades to "treat as new" —
// the dedup cache is an optimization, never a correctness gate, so its
// own failure must never block a job from processing.
func (c *Cache) MarkIfNew(ctx context.Context, id string) (isNew bool, err error) {
	ok, err := c.client.SetNX(ctx, c.prefix+id, "1", c.ttl).Result()
	if err != nil {
		return true, fmt.Errorf("dedup cache unavailable: %w", err)
	}
	return ok, nil
}
