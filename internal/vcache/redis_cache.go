// Package vcache caches effective-visibility verdicts in Redis. Entries
// carry a short TTL and the whole keyspace is flushed on any mutation, so
// a stale verdict can outlive the truth for at most the TTL.
package vcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type verdictPayload struct {
	Public    bool      `json:"public"`
	CheckedAt time.Time `json:"checked_at"`
}

// RedisCache stores resolver verdicts keyed by entity type and id.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisCache{
		client: client,
		prefix: "vis:",
		ttl:    ttl,
	}
}

func (c *RedisCache) key(entityType, entityID string) string {
	return c.prefix + entityType + ":" + entityID
}

// GetVerdict returns a cached verdict. ok is false on miss or any Redis
// failure; the resolver then recomputes from the store.
func (c *RedisCache) GetVerdict(ctx context.Context, entityType, entityID string) (bool, bool) {
	raw, err := c.client.Get(ctx, c.key(entityType, entityID)).Result()
	if err != nil {
		return false, false
	}
	var payload verdictPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return false, false
	}
	return payload.Public, true
}

// SetVerdict caches a verdict with the configured TTL. Failures are
// ignored; the cache is an optimization, never a source of truth.
func (c *RedisCache) SetVerdict(ctx context.Context, entityType, entityID string, public bool) {
	payload, err := json.Marshal(verdictPayload{Public: public, CheckedAt: time.Now()})
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(entityType, entityID), payload, c.ttl).Err()
}

// InvalidateAll deletes every cached verdict. A mutation anywhere in the
// hierarchy can flip verdicts for an entire subtree, so the whole prefix
// is dropped rather than chasing descendants.
func (c *RedisCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	keys := make([]string, 0, 64)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan verdict keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete verdict keys: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
