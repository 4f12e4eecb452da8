// Package cache holds read-through caches in front of the store for the
// lookups hit on every invoice and budget check.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Loader fetches a value on a cache miss.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

// ReadThrough is a size- and TTL-bounded cache that loads missing keys.
// Errors are never cached.
type ReadThrough[K comparable, V any] struct {
	lru  *expirable.LRU[K, V]
	load Loader[K, V]
}

func NewReadThrough[K comparable, V any](size int, ttl time.Duration, load Loader[K, V]) *ReadThrough[K, V] {
	return &ReadThrough[K, V]{
		lru:  expirable.NewLRU[K, V](size, nil, ttl),
		load: load,
	}
}

func (c *ReadThrough[K, V]) Get(ctx context.Context, key K) (V, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	v, err := c.load(ctx, key)
	if err != nil {
		return v, err
	}
	c.lru.Add(key, v)
	return v, nil
}

func (c *ReadThrough[K, V]) Invalidate(key K) {
	c.lru.Remove(key)
}

func (c *ReadThrough[K, V]) Purge() {
	c.lru.Purge()
}

func (c *ReadThrough[K, V]) Len() int {
	return c.lru.Len()
}
