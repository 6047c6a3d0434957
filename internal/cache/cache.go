// Package cache is a process-wide read-through cache with a fixed TTL per entry.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache maps dataset names to loaded payloads. It is safe for concurrent use.
// Concurrent misses on the same key may each run the loader; the entry that
// expires last wins.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Loader produces the payload for a key on a miss.
type Loader[T any] func(ctx context.Context) (T, error)

// Load returns the payload cached under key while it is fresh, otherwise it
// runs loader synchronously and caches the result for ttl. Loader errors are
// returned and never cached.
func Load[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, loader Loader[T]) (T, error) {
	if v, ok := c.lookup(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err := loader(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.store(key, v, ttl)
	return v, nil
}

// GetOrLoad is the untyped form of Load.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader Loader[any]) (any, error) {
	return Load(ctx, c, key, ttl, loader)
}

func (c *Cache) lookup(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(key string, v any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	expiresAt := c.now().Add(ttl)
	if cur, ok := c.entries[key]; ok && cur.expiresAt.After(expiresAt) {
		return
	}
	c.entries[key] = entry{value: v, expiresAt: expiresAt}
}
