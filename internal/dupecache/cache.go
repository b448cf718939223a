// Package dupecache holds short-lived derived data, most importantly
// the per-survey duplicate-id sets the claim path consults. Entries
// expire on a TTL and can be invalidated early when a purge or restore
// makes them stale. Everything lives in memory; a restart simply starts
// cold.
package dupecache

import (
	"log/slog"
	"sync"
	"time"

	"opine/internal/logging"
)

// Kinds partition the key space so unrelated consumers cannot collide.
const (
	// KindDuplicates caches map[string]struct{} duplicate-id sets keyed
	// by survey id.
	KindDuplicates = "duplicates"
)

type item struct {
	value     any
	expiresAt time.Time
}

// Cache is a thread-safe in-memory TTL cache keyed by (kind, key).
type Cache struct {
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	items map[string]item

	stopOnce sync.Once
	stop     chan struct{}
}

// New creates a cache whose entries live for ttl and starts a janitor
// that evicts expired entries in the background. Callers should Close
// the cache when done so the janitor goroutine exits.
func New(ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &Cache{
		ttl:    ttl,
		logger: logging.NewComponentLogger(logger, "dupecache"),
		now:    time.Now,
		items:  make(map[string]item),
		stop:   make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Close stops the janitor. Safe to call more than once.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func cacheKey(kind, key string) string {
	return kind + "\x00" + key
}

// Set stores value under (kind, key) for the cache's TTL.
func (c *Cache) Set(kind, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[cacheKey(kind, key)] = item{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Get returns the live value under (kind, key). Expired entries read as
// misses; the janitor reclaims their memory later.
func (c *Cache) Get(kind, key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[cacheKey(kind, key)]
	if !ok || c.now().After(it.expiresAt) {
		return nil, false
	}
	return it.value, true
}

// Invalidate drops the entry under (kind, key), present or not.
func (c *Cache) Invalidate(kind, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, cacheKey(kind, key))
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]item)
}

// Len counts live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	n := 0
	for _, it := range c.items {
		if !now.After(it.expiresAt) {
			n++
		}
	}
	return n
}

func (c *Cache) janitor() {
	interval := c.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.deleteExpired()
		}
	}
}

func (c *Cache) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("evicted expired cache entries", logging.Int("count", removed))
	}
}
