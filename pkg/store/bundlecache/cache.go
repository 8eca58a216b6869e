// Package bundlecache is a TTL cache for validated bundle artifacts, keyed
// by content hash. It is an optimization only: every operation degrades to
// a miss on error, and the loader remains the source of truth.
package bundlecache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "mixatlas:bundle:"

// DefaultTTL is long enough to absorb bursts of requests against one
// model and short enough that a replaced artifact is picked up quickly.
const DefaultTTL = 30 * time.Second

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached artifact payload for a content hash, or false on
// a miss. Transport errors are logged and reported as misses.
func (c *Cache) Get(ctx context.Context, hash string) ([]byte, bool) {
	payload, err := c.client.Get(ctx, keyPrefix+hash).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("hash", hash).Msg("bundle cache read failed")
		}
		return nil, false
	}
	return payload, true
}

// Set stores a validated artifact payload under its content hash.
func (c *Cache) Set(ctx context.Context, hash string, payload []byte) {
	if err := c.client.Set(ctx, keyPrefix+hash, payload, c.ttl).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("hash", hash).Msg("bundle cache write failed")
	}
}
