package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abhisek/missionkit/internal/logging"
)

// DefaultCacheTTL is how long a cached topic bank stays fresh.
const DefaultCacheTTL = 5 * time.Minute

// Cache is a byte-oriented key/value cache with expiry.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedSource is a decorator that serves topic banks from a Cache and
// falls back to the inner Source on a miss. Cache failures never fail a read.
type CachedSource struct {
	inner  Source
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// WithCache wraps a Source with read-through caching.
func WithCache(inner Source, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{inner: inner, cache: cache, ttl: ttl, logger: logging.OrDiscard(logger)}
}

func (c *CachedSource) ListByTopic(ctx context.Context, topicID string) ([]Item, error) {
	key := topicKey(topicID)

	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("content cache read failed", "topic_id", topicID, "error", err)
	}
	if ok {
		var items []Item
		if err := json.Unmarshal(raw, &items); err == nil {
			return items, nil
		}
		c.logger.Warn("discarding corrupt cache entry", "topic_id", topicID)
	}

	items, err := c.inner.ListByTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(items); err == nil {
		if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
			c.logger.Warn("content cache write failed", "topic_id", topicID, "error", err)
		}
	}
	return items, nil
}

// Invalidate drops the cached bank of a topic.
func (c *CachedSource) Invalidate(ctx context.Context, topicID string) error {
	return c.cache.Delete(ctx, topicKey(topicID))
}

func topicKey(topicID string) string {
	return fmt.Sprintf("missionkit:content:%s", topicID)
}

// RedisCache implements Cache on a Redis client.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to addr and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// Close releases the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
