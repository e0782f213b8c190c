package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = errors.New("cache miss")

// Cache stores short-lived serialized values
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// DeleteByPattern removes all values matching a glob pattern (e.g. "cache:stats:*")
	DeleteByPattern(ctx context.Context, pattern string) error

	Ping(ctx context.Context) error
	Close() error
}

// Key prefixes
const (
	KeyPrefixStats        = "cache:stats"
	KeyPrefixFilterOption = "cache:filters"
	KeyPrefixOperators    = "cache:operators"
)

// TTLs
const (
	TTLStats         = 30 * time.Second
	TTLFilterOptions = 5 * time.Minute
	TTLOperators     = 2 * time.Minute
)

// Key joins a prefix and a suffix
func Key(prefix, suffix string) string {
	return prefix + ":" + suffix
}

// Pattern matches every key under a prefix
func Pattern(prefix string) string {
	return prefix + ":*"
}

// GetJSON loads a cached value into dst
func GetJSON(ctx context.Context, c Cache, key string, dst any) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}

	return nil
}

// SetJSON caches the JSON encoding of v
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s for cache: %w", key, err)
	}

	return c.Set(ctx, key, data, ttl)
}
