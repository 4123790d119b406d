package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is an optional redis-backed JSON response cache. A nil client (redis
// not configured or unreachable) disables caching; every method degrades to a
// no-op so handlers can call it unconditionally.
type Cache struct {
	client *redis.Client
}

// NewCache connects to redis and verifies the connection. An empty addr
// returns a disabled cache; an unreachable redis does too, since the API must
// keep serving from the database without it.
func NewCache(addr, password string, db int) *Cache {
	if addr == "" {
		return &Cache{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return &Cache{}
	}
	return &Cache{client: client}
}

// Available reports whether a live redis connection backs this cache.
func (c *Cache) Available() bool {
	return c.client != nil
}

// Get unmarshals a cached value into dest. Returns false on miss, disabled
// cache, or any redis error.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c.client == nil {
		return false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), dest) == nil
}

// Set stores a value as JSON with a TTL. Failures are swallowed; the cache is
// an optimization, never a dependency.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, data, ttl)
}

// Close releases the redis connection.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
