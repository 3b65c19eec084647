package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// MemoryCache expires entries lazily on read.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

type MemoryOption func(*MemoryCache)

// WithClock replaces time.Now, letting tests move time forward.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) { c.now = now }
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{items: make(map[string]memoryItem), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) GetAll(_ context.Context, keys []string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		item, ok := c.items[k]
		if !ok {
			continue
		}
		if !item.expiresAt.IsZero() && !now.Before(item.expiresAt) {
			delete(c.items, k)
			continue
		}
		out[k] = item.value
	}
	return out, nil
}

// PutAll stores entries. A non-positive expiration never expires.
func (c *MemoryCache) PutAll(_ context.Context, entries map[string]Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range entries {
		item := memoryItem{value: e.Value}
		if e.Expiration > 0 {
			item.expiresAt = now.Add(e.Expiration)
		}
		c.items[k] = item
	}
	return nil
}

func (c *MemoryCache) RemoveAll(_ context.Context, keys []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}
