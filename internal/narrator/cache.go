package narrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores narrator responses in Redis keyed by a hash of the prompt.
// Redis failures are logged and fall through to the wrapped narrator, so an
// unavailable cache never fails a request.
type Cache struct {
	next   Narrator
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewCache wraps next with a Redis response cache. A ttl of zero keeps entries
// until evicted.
//
// Precondition: next, client, and logger must be non-nil.
func NewCache(next Narrator, client *redis.Client, ttl time.Duration, prefix string, logger *zap.Logger) *Cache {
	return &Cache{next: next, client: client, ttl: ttl, prefix: prefix, logger: logger}
}

// Key returns the Redis key for prompt.
func (c *Cache) Key(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Request returns a cached response when one exists, otherwise asks the
// wrapped narrator and caches its answer. Errors are never cached.
func (c *Cache) Request(ctx context.Context, prompt string) (string, error) {
	key := c.Key(prompt)
	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		c.logger.Debug("narrator cache hit", zap.String("key", key))
		return cached, nil
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("narrator cache read failed", zap.String("key", key), zap.Error(err))
	}

	resp, err := c.next.Request(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, key, resp, c.ttl).Err(); err != nil {
		c.logger.Warn("narrator cache write failed", zap.String("key", key), zap.Error(err))
	}
	return resp, nil
}

// Ping checks that Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
