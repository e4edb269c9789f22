package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is a small in-memory TTL cache. Expired entries are dropped
// lazily on read.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*entry
}

// New creates a new cache
func New() *Cache {
	return &Cache{items: map[string]*entry{}}
}

// Set stores a value under key for the given TTL
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Get returns the value for key if it exists and has not expired
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, exists := c.items[key]
	c.mu.RUnlock()
	if !exists {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Delete removes a key from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string]*entry{}
}

// Invalidate removes all items whose key starts with prefix
func (c *Cache) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// Len reports the number of stored entries, expired ones included
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
