// Package cache provides the bounded in-memory stores backing the metrics
// endpoints. Each endpoint owns one Cache instance with its own TTL; entries
// are opaque payloads keyed by "<environment>|<range>".
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store is the read/write contract the aggregator depends on.
type Store[T any] interface {
	// Check returns the cached payload for key unless it is absent,
	// expired, or bypass is set. Bypass never evicts the entry.
	Check(key string, bypass bool) (T, bool)
	// Set overwrites any existing entry and resets its age to zero.
	Set(key string, value T) T
	Invalidate(key string)
	Purge()
	Len() int
}

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// Cache is a fixed-capacity LRU with a per-instance TTL. Expired entries are
// logically absent and evicted lazily on read.
type Cache[T any] struct {
	mu  sync.Mutex
	lru *lru.Cache[string, entry[T]]
	ttl time.Duration
	now func() time.Time
}

// DefaultCapacity bounds each endpoint cache; keys are (environment, range)
// pairs, so pressure is low.
const DefaultCapacity = 128

// Option configures a Cache at construction time.
type Option[T any] func(*Cache[T])

// WithClock replaces the time source. Used by tests to force expiry.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Cache[T]) { c.now = now }
}

func New[T any](capacity int, ttl time.Duration, opts ...Option[T]) *Cache[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	backing, err := lru.New[string, entry[T]](capacity)
	if err != nil {
		// lru.New only fails on non-positive capacity, guarded above.
		panic(err)
	}
	c := &Cache[T]{
		lru: backing,
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache[T]) Check(key string, bypass bool) (T, bool) {
	var zero T
	if bypass {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		c.lru.Remove(key)
		return zero, false
	}
	return e.value, true
}

func (c *Cache[T]) Set(key string, value T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry[T]{value: value, storedAt: c.now()})
	return value
}

func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

func (c *Cache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Key builds the composite cache key for an environment and raw range token.
func Key(environment, rawRange string) string {
	return environment + "|" + rawRange
}
