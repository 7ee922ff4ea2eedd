package collision

import (
	"sync"
	"sync/atomic"

	"github.com/opd-ai/go-isonav/pkg/terrain"
)

// CacheStats is a read-only snapshot for diagnostics overlays.
type CacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache memoizes terrain results per quantized position. Entries never
// expire; the owner must Clear it whenever the terrain index changes.
//
// Concurrent readers are fine. Two writers racing on the same key store the
// same value, so a lost update only costs a recomputation.
type Cache struct {
	mu      sync.RWMutex
	entries map[terrain.Key]bool
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[terrain.Key]bool)}
}

// Lookup returns the memoized result for k and counts the hit or miss.
func (c *Cache) Lookup(k terrain.Key) (blocked, ok bool) {
	c.mu.RLock()
	blocked, ok = c.entries[k]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return blocked, ok
}

// Store memoizes a result.
func (c *Cache) Store(k terrain.Key, blocked bool) {
	c.mu.Lock()
	c.entries[k] = blocked
	c.mu.Unlock()
}

// Clear drops every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Len returns the number of memoized keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.Len(),
	}
}
