package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gab-cat/tarot-bot/internal/domain"
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// Cache in-memory реализация cache.Cache с TTL
type Cache struct {
	mu    sync.Mutex
	items map[string]cacheEntry
	now   func() time.Time
}

func NewCache() *Cache {
	return &Cache{items: make(map[string]cacheEntry), now: time.Now}
}

func (c *Cache) alive(key string) (cacheEntry, bool) {
	e, ok := c.items[key]
	if !ok {
		return e, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		return e, false
	}
	return e, true
}

func (c *Cache) put(key, value string, ttl time.Duration) {
	e := cacheEntry{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.items[key] = e
}

func (c *Cache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.alive(key)
	if !ok {
		return "", fmt.Errorf("key %s: %w", key, domain.ErrNotFound)
	}
	return e.value, nil
}

func (c *Cache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value, ttl)
	return nil
}

func (c *Cache) SetNX(_ context.Context, key string, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.alive(key); ok {
		return false, nil
	}
	c.put(key, value, ttl)
	return true, nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *Cache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.alive(key)
	return ok, nil
}

func (c *Cache) Close() error {
	return nil
}
