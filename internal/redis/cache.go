package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// JSONCache stores JSON documents under a namespace. Invalidate bumps a
// generation counter so every key written before the call stops resolving
// without scanning the keyspace.
type JSONCache struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

func NewJSONCache(client *redis.Client, namespace string, ttl time.Duration) *JSONCache {
	return &JSONCache{client: client, namespace: namespace, ttl: ttl}
}

func (c *JSONCache) genKey() string {
	return c.namespace + ":gen"
}

// Generation returns the current cache generation. Read it before fetching
// the data to cache and pass it to Set, so a value built from a snapshot
// that an Invalidate has since superseded is written under a dead key.
func (c *JSONCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *JSONCache) key(gen int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", c.namespace, gen, key)
}

// Get decodes the cached value into out. ok is false on a miss.
func (c *JSONCache) Get(ctx context.Context, key string, out any) (ok bool, err error) {
	if c.ttl <= 0 {
		return false, nil
	}
	gen, err := c.Generation(ctx)
	if err != nil {
		return false, fmt.Errorf("read cache generation: %w", err)
	}

	val, err := c.client.Get(ctx, c.key(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cache: %w", err)
	}
	if err := json.Unmarshal(val, out); err != nil {
		return false, nil
	}
	return true, nil
}

// Set stores v under key for generation gen.
func (c *JSONCache) Set(ctx context.Context, gen int64, key string, v any) error {
	if c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	if err := c.client.Set(ctx, c.key(gen, key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

func (c *JSONCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.genKey()).Err(); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	return nil
}
