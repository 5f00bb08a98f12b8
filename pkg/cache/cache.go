// Package cache provides a small keyed cache abstraction with an LRU+TTL
// implementation, so callers depend on the interface and tests can swap it.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a keyed store whose entries may disappear at any time.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Len() int
}

// LRU is a size-bounded cache whose entries also expire after a fixed TTL.
type LRU[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

// NewLRU creates an LRU holding at most size entries, each living for ttl.
// A non-positive size falls back to 1; a non-positive ttl disables expiry.
func NewLRU[K comparable, V any](size int, ttl time.Duration) *LRU[K, V] {
	if size <= 0 {
		size = 1
	}
	if ttl < 0 {
		ttl = 0
	}
	return &LRU[K, V]{lru: expirable.NewLRU[K, V](size, nil, ttl)}
}

// Get returns the live entry for key, marking it recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) { return c.lru.Get(key) }

// Set stores value under key, evicting the least recently used entry if full.
func (c *LRU[K, V]) Set(key K, value V) { c.lru.Add(key, value) }

// Len counts stored entries, including ones expired but not yet purged.
func (c *LRU[K, V]) Len() int { return c.lru.Len() }

// Nop is a Cache that never stores anything.
type Nop[K comparable, V any] struct{}

func (Nop[K, V]) Get(K) (V, bool) {
	var zero V
	return zero, false
}
func (Nop[K, V]) Set(K, V) {}
func (Nop[K, V]) Len() int { return 0 }
