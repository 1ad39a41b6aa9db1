// Package cache provides a bounded, concurrency-safe map with LRU eviction,
// used to memoize compiled patterns and replacement templates.
//
// It wraps hashicorp/golang-lru so that concurrent compiles of the same key
// agree on one value: the first one inserted wins.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the capacity used when New is given a non-positive size.
const DefaultSize = 64

// Cache is a fixed-capacity map from K to V. The zero value is not usable;
// create caches with New.
type Cache[K comparable, V any] struct {
	lru  *lru.Cache[K, V]
	size int
}

// New returns an empty cache holding at most size entries.
func New[K comparable, V any](size int) *Cache[K, V] {
	if size <= 0 {
		size = DefaultSize
	}
	l, err := lru.New[K, V](size)
	if err != nil {
		// lru.New only fails for a non-positive size
		panic(err)
	}
	return &Cache[K, V]{lru: l, size: size}
}

// Get returns the value stored for key and marks it recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Add stores value under key unless the key is already present, and
// returns the value the cache holds for key afterwards. Concurrent callers
// adding the same key all receive the first value inserted.
func (c *Cache[K, V]) Add(key K, value V) V {
	if prev, ok, _ := c.lru.PeekOrAdd(key, value); ok {
		c.lru.Get(key)
		return prev
	}
	return value
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Cap returns the capacity of the cache.
func (c *Cache[K, V]) Cap() int {
	return c.size
}

// Purge removes every entry.
func (c *Cache[K, V]) Purge() {
	c.lru.Purge()
}
