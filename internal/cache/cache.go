// Package cache provides an in-memory TTL cache with LRU eviction and an
// optional stale-read window, shared by the market-data and news clients.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/stockbro/stockbro/internal/observ"
)

// Cache is a thread-safe key/value store with per-entry expiry and bounded
// size. When full, the least-recently-used entry is evicted. Entries past
// their TTL but within the stale window can still be served via GetStale so
// callers have something to show when an upstream provider is unavailable.
type Cache struct {
	mu          sync.Mutex
	name        string
	entries     map[string]*list.Element
	order       *list.List // front = most recently used
	maxSize     int
	defaultTTL  time.Duration
	staleWindow time.Duration

	now func() time.Time
}

type entry struct {
	key       string
	value     any
	expiresAt time.Time
}

// New creates a cache. name is used for metrics labels only. staleWindow may
// be zero, in which case expired entries are never served.
func New(name string, maxSize int, defaultTTL, staleWindow time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 200
	}
	return &Cache{
		name:        name,
		entries:     make(map[string]*list.Element),
		order:       list.New(),
		maxSize:     maxSize,
		defaultTTL:  defaultTTL,
		staleWindow: staleWindow,
		now:         time.Now,
	}
}

// Get returns the fresh value for key. Entries past their TTL are reported as
// misses; entries past the stale window are removed entirely.
func (c *Cache) Get(key string) (any, bool) {
	v, stale, ok := c.lookup(key, false)
	if !ok || stale {
		return nil, false
	}
	return v, true
}

// GetStale returns the value for key even if it has expired, as long as it is
// still within the stale window. The second return reports whether the value
// is past its TTL; stale values are informational and are never re-cached.
func (c *Cache) GetStale(key string) (value any, stale bool, ok bool) {
	return c.lookup(key, true)
}

func (c *Cache) lookup(key string, allowStale bool) (any, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, exists := c.entries[key]
	if !exists {
		observ.IncCounter("cache_misses_total", map[string]string{"cache": c.name})
		return nil, false, false
	}

	e := el.Value.(*entry)
	now := c.now()

	// Fully expired: past TTL and past the stale window.
	if now.After(e.expiresAt.Add(c.staleWindow)) {
		c.removeLocked(el)
		observ.IncCounter("cache_misses_total", map[string]string{"cache": c.name})
		return nil, false, false
	}

	if now.After(e.expiresAt) {
		if !allowStale {
			observ.IncCounter("cache_misses_total", map[string]string{"cache": c.name})
			return nil, false, false
		}
		observ.IncCounter("cache_stale_reads_total", map[string]string{"cache": c.name})
		return e.value, true, true
	}

	// Fresh hit: protect from eviction.
	c.order.MoveToFront(el)
	observ.IncCounter("cache_hits_total", map[string]string{"cache": c.name})
	return e.value, false, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value under key with an explicit TTL, moving the key to the
// most-recently-used position and evicting LRU entries beyond capacity.
func (c *Cache) SetTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, exists := c.entries[key]; exists {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = now.Add(ttl)
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{key: key, value: value, expiresAt: now.Add(ttl)})
	c.entries[key] = el

	for c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
		observ.IncCounter("cache_evictions_total", map[string]string{"cache": c.name})
	}
}

// Invalidate removes key if present.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, exists := c.entries[key]; exists {
		c.removeLocked(el)
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// SetNowFunc overrides the cache's clock. Intended for tests that need to
// move entries into or past the stale window without sleeping.
func (c *Cache) SetNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.entries, e.key)
	c.order.Remove(el)
}
