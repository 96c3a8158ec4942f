// Package cache is the shared in-memory content store: request URI to raw
// origin reply, bounded by a byte budget, evicted least-recently-used.
package cache

import (
	"errors"
	"sync"

	"github.com/omalloc/relay/metrics"
)

// Default bounds, matching the proxy's wire limits.
const (
	DefaultMaxObjectSize = 100 * 1024
	DefaultMaxCacheSize  = 1024 * 1024
)

// ErrTooLarge reports an insert whose value exceeds the per-object bound.
var ErrTooLarge = errors.New("cache: object exceeds max object size")

type entry struct {
	key   string
	value []byte
	stamp uint64
}

// Cache is safe for use from many concurrent workers. Every operation is
// atomic with respect to the others; the guard is never held across I/O.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	total   int
	stamp   uint64

	maxObject    int
	maxTotal     int
	refreshOnDup bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxObjectSize bounds a single stored object.
func WithMaxObjectSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxObject = n
		}
	}
}

// WithMaxCacheSize bounds the sum of stored object lengths.
func WithMaxCacheSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxTotal = n
		}
	}
}

// WithRefreshOnDuplicate makes a duplicate-key insert bump the existing
// entry's recency instead of being a pure no-op.
func WithRefreshOnDuplicate(refresh bool) Option {
	return func(c *Cache) {
		c.refreshOnDup = refresh
	}
}

// New allocates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:   make(map[string]*entry),
		maxObject: DefaultMaxObjectSize,
		maxTotal:  DefaultMaxCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns a copy of the stored value and marks the entry as the most
// recently used. A miss has no side effects.
func (c *Cache) Lookup(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		metrics.CacheEvents.WithLabelValues(metrics.CacheEventMiss).Inc()
		return nil, false
	}

	c.stamp++
	e.stamp = c.stamp

	out := make([]byte, len(e.value))
	copy(out, e.value)
	metrics.CacheEvents.WithLabelValues(metrics.CacheEventHit).Inc()
	return out, true
}

// Insert stores a copy of value under key. A key already present is kept
// untouched (no recency refresh, unless configured otherwise). When the
// value would push the total past the byte budget, least-recently-used
// entries are evicted first. Values over the per-object bound are rejected
// with ErrTooLarge.
func (c *Cache) Insert(key string, value []byte) error {
	if len(value) > c.maxObject {
		metrics.CacheEvents.WithLabelValues(metrics.CacheEventDrop).Inc()
		return ErrTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if c.refreshOnDup {
			c.stamp++
			e.stamp = c.stamp
		}
		return nil
	}

	for c.total+len(value) > c.maxTotal && len(c.entries) > 0 {
		c.evictLocked()
	}
	if c.total+len(value) > c.maxTotal {
		metrics.CacheEvents.WithLabelValues(metrics.CacheEventDrop).Inc()
		return ErrTooLarge
	}

	c.stamp++
	stored := make([]byte, len(value))
	copy(stored, value)
	c.entries[key] = &entry{key: key, value: stored, stamp: c.stamp}
	c.total += len(stored)

	metrics.CacheEvents.WithLabelValues(metrics.CacheEventInsert).Inc()
	c.publishLocked()
	return nil
}

// evictLocked removes the entry with the smallest stamp. Stamps are unique,
// so the victim is unambiguous.
func (c *Cache) evictLocked() {
	var victim *entry
	for _, e := range c.entries {
		if victim == nil || e.stamp < victim.stamp {
			victim = e
		}
	}
	if victim == nil {
		return
	}
	delete(c.entries, victim.key)
	c.total -= len(victim.value)
	metrics.CacheEvents.WithLabelValues(metrics.CacheEventEvict).Inc()
	c.publishLocked()
}

func (c *Cache) publishLocked() {
	metrics.CacheBytes.Set(float64(c.total))
	metrics.CacheEntries.Set(float64(len(c.entries)))
}

// Remove deletes key immediately, regardless of recency. It reports whether
// an entry was present. This is the purge path, not part of the eviction
// discipline.
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	c.total -= len(e.value)
	metrics.CacheEvents.WithLabelValues(metrics.CacheEventPurge).Inc()
	c.publishLocked()
	return true
}

// MaxObjectSize returns the per-object bound; replies past it are relayed
// but never inserted.
func (c *Cache) MaxObjectSize() int {
	return c.maxObject
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Bytes returns the sum of stored object lengths.
func (c *Cache) Bytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Shutdown walks and releases every entry and resets the counters.
func (c *Cache) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		delete(c.entries, key)
	}
	c.total = 0
	c.stamp = 0
	c.publishLocked()
}
