package storage

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jathurchan/davlock/clock"
	"github.com/jathurchan/davlock/etag"
	"github.com/jathurchan/davlock/logger"
	"github.com/jathurchan/davlock/types"
)

// Cache defaults.
const (
	DefaultCacheSize = 4096
	DefaultCacheTTL  = 5 * time.Second
)

// CacheConfig holds configuration for a CachedSource.
type CacheConfig struct {
	// Size is the maximum number of entries the cache can hold.
	// When the limit is reached, the least recently used entry is evicted.
	Size int

	// TTL defines how long a looked-up tag is served without asking the
	// underlying source again.
	TTL time.Duration

	Clock  clock.Clock
	Logger logger.Logger
}

// CacheStats is a point-in-time view of cache activity.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
}

// cacheEntry represents a single cached lookup stored in the LRU cache.
// Missing resources are cached too.
type cacheEntry struct {
	path      string
	tag       etag.EntityTag
	exists    bool
	expiresAt time.Time

	// element points to the entry's position in the LRU list,
	// enabling constant-time removal and reordering.
	element *list.Element
}

// CachedSource is an LRU cache with per-entry TTL in front of another
// EntityTagSource. It may serve tags up to TTL old; callers that change a
// resource should Invalidate it. Backend errors are never cached.
type CachedSource struct {
	// mu protects items and lruList.
	mu sync.Mutex

	source EntityTagSource
	config CacheConfig

	// items maps cleaned paths to their cache entries.
	items map[string]*cacheEntry

	// lruList holds entries, most recently used at the front.
	lruList *list.List

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64

	clock  clock.Clock
	logger logger.Logger
}

// NewCachedSource wraps source with an LRU + TTL cache.
func NewCachedSource(source EntityTagSource, config CacheConfig) *CachedSource {
	if config.Size <= 0 {
		config.Size = DefaultCacheSize
	}
	if config.TTL <= 0 {
		config.TTL = DefaultCacheTTL
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	if config.Logger == nil {
		config.Logger = logger.NewNoOpLogger()
	}

	return &CachedSource{
		source:  source,
		config:  config,
		items:   make(map[string]*cacheEntry, config.Size),
		lruList: list.New(),
		clock:   config.Clock,
		logger:  config.Logger.WithComponent("etag-cache"),
	}
}

// EntityTag implements EntityTagSource.
func (c *CachedSource) EntityTag(ctx context.Context, path string) (etag.EntityTag, bool, error) {
	key := types.CleanPath(path)

	if tag, exists, ok := c.get(key); ok {
		c.hits.Add(1)
		return tag, exists, nil
	}
	c.misses.Add(1)

	tag, exists, err := c.source.EntityTag(ctx, path)
	if err != nil {
		return etag.EntityTag{}, false, err
	}
	c.add(key, tag, exists)
	return tag, exists, nil
}

// Invalidate removes the cached entry for path, if present.
func (c *CachedSource) Invalidate(path string) {
	key := types.CleanPath(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.items[key]; exists {
		c.removeEntryLocked(entry)
		c.logger.Debugw("Cache entry invalidated", "path", key)
	}
}

// InvalidateAll clears all entries from the cache immediately.
func (c *CachedSource) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	oldSize := len(c.items)
	c.items = make(map[string]*cacheEntry, c.config.Size)
	c.lruList.Init()
	c.logger.Debugw("Cache cleared", "entriesRemoved", oldSize)
}

// Cleanup removes expired entries and returns how many were removed.
func (c *CachedSource) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for e := c.lruList.Back(); e != nil; {
		prev := e.Prev()
		entry := e.Value.(*cacheEntry)
		if !now.Before(entry.expiresAt) {
			c.removeEntryLocked(entry)
			removed++
		}
		e = prev
	}

	if removed > 0 {
		c.logger.Debugw("Cache cleanup performed", "expiredEntriesRemoved", removed)
	}
	return removed
}

// Stats returns hit, miss and eviction counters and the current size.
func (c *CachedSource) Stats() CacheStats {
	c.mu.Lock()
	entries := len(c.items)
	c.mu.Unlock()

	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   entries,
	}
}

// get returns the cached lookup for key. ok is false on a miss or when the
// entry has expired.
func (c *CachedSource) get(key string) (tag etag.EntityTag, exists, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.items[key]
	if !found {
		return etag.EntityTag{}, false, false
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		c.removeEntryLocked(entry)
		return etag.EntityTag{}, false, false
	}
	c.lruList.MoveToFront(entry.element)
	return entry.tag, entry.exists, true
}

func (c *CachedSource) add(key string, tag etag.EntityTag, exists bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().Add(c.config.TTL)
	if entry, found := c.items[key]; found {
		entry.tag, entry.exists, entry.expiresAt = tag, exists, expiresAt
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.config.Size {
		c.evictLRUEntryLocked()
	}

	entry := &cacheEntry{path: key, tag: tag, exists: exists, expiresAt: expiresAt}
	entry.element = c.lruList.PushFront(entry)
	c.items[key] = entry
}

// evictLRUEntryLocked removes the least recently used entry.
// Caller must hold mu.
func (c *CachedSource) evictLRUEntryLocked() {
	element := c.lruList.Back()
	if element == nil {
		return
	}
	entry := element.Value.(*cacheEntry)
	c.removeEntryLocked(entry)
	c.evictions.Add(1)
	c.logger.Debugw("Cache entry evicted", "path", entry.path, "reason", "cache full")
}

// removeEntryLocked removes an entry from both the map and the LRU list.
// Caller must hold mu.
func (c *CachedSource) removeEntryLocked(entry *cacheEntry) {
	delete(c.items, entry.path)
	c.lruList.Remove(entry.element)
}
