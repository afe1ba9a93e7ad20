package modbusgw

import (
	"sync"
	"time"
)

// CachedResult is one cached read, keyed by models.CacheKey.
type CachedResult struct {
	Values    []uint16
	ReadAt    time.Time
	ExpiresAt time.Time
}

// CacheStats is a point-in-time snapshot of cache activity counters.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Sets      uint64
	Evictions uint64
	Size      int
}

// Cache is a TTL-bounded read cache. Unlike a plain expiry check, Get
// deletes an expired entry as soon as it observes one instead of leaving
// it for a background sweep, so Size and the eviction counter stay
// accurate between poll cycles.
type Cache struct {
	mu  sync.RWMutex
	ttl time.Duration

	entries map[string]*CachedResult

	hits      uint64
	misses    uint64
	sets      uint64
	evictions uint64
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]*CachedResult),
	}
}

// Get returns the cached values for key, and the time they were written,
// if present and unexpired.
func (c *Cache) Get(key string) ([]uint16, time.Time, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, time.Time{}, false
	}

	if time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		if cur, stillThere := c.entries[key]; stillThere && cur == entry {
			delete(c.entries, key)
			c.evictions++
		}
		c.misses++
		c.mu.Unlock()
		return nil, time.Time{}, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return entry.Values, entry.ReadAt, true
}

// Set stores values under key with the cache's configured TTL.
func (c *Cache) Set(key string, values []uint16) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &CachedResult{
		Values:    values,
		ReadAt:    now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.sets++
}

// Invalidate removes a single key, used after a write to force the next
// read to go live instead of returning a now-stale cached value.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.evictions++
	}
}

// InvalidatePrefix removes every cached entry whose key starts with
// prefix. A write to one address can be covered by several cached reads
// of different counts starting at or before that address; since the
// cache key only encodes (device, register_type, address, count), the
// precise set of overlapping entries isn't addressable directly, so a
// write instead drops every cached reading for the (device, register
// type) pair and lets the next read repopulate it.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
			c.evictions++
		}
	}
}

// Keys returns every live (unexpired) cache key, for admin inspection.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := time.Now()
	keys := make([]string, 0, len(c.entries))
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// DeviceKeys returns every live cache key belonging to deviceID.
func (c *Cache) DeviceKeys(deviceID string) []string {
	prefix := deviceID + ":"
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := time.Now()
	keys := make([]string, 0)
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			continue
		}
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	return keys
}

// Clear empties the cache, e.g. on Reload.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CachedResult)
}

// Stats returns a snapshot of the cache's counters and current size.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Sets:      c.sets,
		Evictions: c.evictions,
		Size:      len(c.entries),
	}
}
