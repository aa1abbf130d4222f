package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache provides a size-bounded in-memory cache whose entries expire after a TTL.
// A non-positive TTL keeps entries until they are evicted by size.
type Cache[V any] struct {
	lru *expirable.LRU[string, V]
}

// New creates a new Cache holding at most size entries for ttl each
func New[V any](size int, ttl time.Duration) *Cache[V] {
	if size <= 0 {
		size = 1
	}
	return &Cache[V]{
		lru: expirable.NewLRU[string, V](size, nil, ttl),
	}
}

// Get retrieves a value from the cache
// Returns the value and true if found and not expired, zero value and false otherwise
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

// Set stores a value, evicting the least recently used entry when full
func (c *Cache[V]) Set(key string, value V) {
	c.lru.Add(key, value)
}

// Delete removes a value from the cache
func (c *Cache[V]) Delete(key string) {
	c.lru.Remove(key)
}

// Clear removes all entries from the cache
func (c *Cache[V]) Clear() {
	c.lru.Purge()
}

// Size returns the number of entries in the cache
func (c *Cache[V]) Size() int {
	return c.lru.Len()
}
