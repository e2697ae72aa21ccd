package script

import "sync"

// DefaultCacheSize bounds the number of memoized titles.
const DefaultCacheSize = 4096

// Entry is a memoized rewrite result.
type Entry struct {
	Value string
	OK    bool
}

// MemoryCache is an in-memory cache of rewrite results. When full it is
// emptied before the next insert; titles seen again are simply recomputed.
type MemoryCache struct {
	mu    sync.RWMutex
	limit int
	data  map[string]Entry
}

// NewMemoryCache creates a cache holding up to size entries. size <= 0
// uses DefaultCacheSize.
func NewMemoryCache(size int) *MemoryCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &MemoryCache{limit: size, data: make(map[string]Entry)}
}

// Get retrieves a cached result by title.
func (c *MemoryCache) Get(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// Set stores a result.
func (c *MemoryCache) Set(key string, value Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; !ok && len(c.data) >= c.limit {
		clear(c.data)
	}
	c.data[key] = value
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
