package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "catalog:version"

// Cache is a redis-backed JSON read cache. Keys embed a version counter so
// a single INCR invalidates every cached listing at once.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Key builds a versioned cache key for the given suffix.
func (c *Cache) Key(ctx context.Context, suffix string) string {
	if c == nil || c.client == nil {
		return ""
	}
	version, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err != nil {
		version = 0
	}
	return fmt.Sprintf("catalog:v%d:%s", version, suffix)
}

// Invalidate bumps the version counter, orphaning all existing entries.
// Orphans expire on their own TTL.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the
// key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
