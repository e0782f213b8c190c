package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

// NoOpCache is used when caching is disabled
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (NoOpCache) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (NoOpCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (NoOpCache) Delete(context.Context, string) error {
	return nil
}

func (NoOpCache) DeleteByPattern(context.Context, string) error {
	return nil
}

func (NoOpCache) Ping(context.Context) error {
	return nil
}

func (NoOpCache) Close() error {
	return nil
}

// MemoryCache is an in-process cache for single-instance deployments and tests
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a cache that evicts expired entries every interval
func NewMemoryCache(interval time.Duration) *MemoryCache {
	c := &MemoryCache{
		items: make(map[string]cacheItem),
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	if interval > 0 {
		go c.evictLoop(interval)
	}

	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	if !ok || c.now().After(item.expiresAt) {
		return nil, ErrCacheMiss
	}

	return append([]byte(nil), item.value...), nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem{
		value:     append([]byte(nil), value...),
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// DeleteByPattern accepts the same glob syntax as Redis SCAN MATCH for * and ?
func (c *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.items, key)
		}
	}
	return nil
}

func (c *MemoryCache) Ping(context.Context) error {
	return nil
}

func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

// Len reports the number of stored entries, expired or not
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *MemoryCache) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
		}
	}
}

func (c *MemoryCache) evictLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evict()
		}
	}
}
