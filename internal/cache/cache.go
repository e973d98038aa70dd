// Package cache keeps parsed log content in memory between queries.
//
// A ContentCache is an ordinary value owned by whoever creates it. Callers
// pass it to Fetch together with a loader and decide when to invalidate.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/log-viewer/backend/internal/logging"
	"github.com/log-viewer/backend/internal/models"
)

var logger = logging.New("Cache")

// DefaultMaxEntries bounds how many parsed logs are held at once.
const DefaultMaxEntries = 32

// Loader produces the parsed entries of a log on a cache miss.
type Loader func(ctx context.Context, id string) ([]models.LogEntry, error)

type item struct {
	entries      []models.LogEntry
	lastAccessed time.Time
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// ContentCache maps log IDs to parsed entries. Cached slices are shared
// between callers and must be treated as read-only.
type ContentCache struct {
	mu         sync.Mutex
	items      map[string]*item
	maxEntries int
	hits       uint64
	misses     uint64
	// gen counts InvalidateAll calls and idGen counts Invalidate calls per
	// id. An in-flight load is stored only if neither moved for its id.
	gen   uint64
	idGen map[string]uint64

	loads singleflight.Group
	now   func() time.Time
}

// New creates a cache holding at most maxEntries logs.
// maxEntries <= 0 selects DefaultMaxEntries.
func New(maxEntries int) *ContentCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ContentCache{
		items:      make(map[string]*item),
		idGen:      make(map[string]uint64),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached entries for id and marks them as recently used.
func (c *ContentCache) Get(id string) ([]models.LogEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[id]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	it.lastAccessed = c.now()
	return it.entries, true
}

// Put stores entries for id, evicting the least recently used log when full.
func (c *ContentCache) Put(id string, entries []models.LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(id, entries)
}

func (c *ContentCache) putLocked(id string, entries []models.LogEntry) {
	now := c.now()
	if it, ok := c.items[id]; ok {
		it.entries, it.lastAccessed = entries, now
		return
	}
	for len(c.items) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.items[id] = &item{entries: entries, lastAccessed: now}
}

// Invalidate drops id. It reports whether anything was cached.
func (c *ContentCache) Invalidate(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[id]
	delete(c.items, id)
	c.idGen[id]++
	c.loads.Forget(id)
	return ok
}

// InvalidateAll empties the cache and returns how many logs were dropped.
func (c *ContentCache) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.items)
	for id := range c.items {
		c.loads.Forget(id)
	}
	c.items = make(map[string]*item)
	c.idGen = make(map[string]uint64)
	c.gen++
	return n
}

// Len returns the number of cached logs.
func (c *ContentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns the current counters.
func (c *ContentCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Entries: len(c.items), Hits: c.hits, Misses: c.misses}
}

// Cleanup removes logs not accessed within maxAge and returns the count.
func (c *ContentCache) Cleanup(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-maxAge)
	removed := 0
	for id, it := range c.items {
		if it.lastAccessed.Before(cutoff) {
			delete(c.items, id)
			removed++
		}
	}
	if removed > 0 {
		logger.Debugf("cleaned up %d idle logs, %d remain", removed, len(c.items))
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (c *ContentCache) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup(maxAge)
		}
	}
}

// Fetch returns the entries for id from c, calling load on a miss.
// Concurrent misses for the same id share a single load. Failed loads are
// not cached.
func Fetch(ctx context.Context, c *ContentCache, id string, load Loader) ([]models.LogEntry, error) {
	if entries, ok := c.Get(id); ok {
		return entries, nil
	}

	v, err, _ := c.loads.Do(id, func() (any, error) {
		c.mu.Lock()
		gen, idGen := c.gen, c.idGen[id]
		c.mu.Unlock()

		entries, err := load(ctx, id)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gen == gen && c.idGen[id] == idGen {
			c.putLocked(id, entries)
		}
		c.mu.Unlock()
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.LogEntry), nil
}

func (c *ContentCache) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, it := range c.items {
		if oldestID == "" || it.lastAccessed.Before(oldest) {
			oldestID, oldest = id, it.lastAccessed
		}
	}
	if oldestID != "" {
		delete(c.items, oldestID)
		logger.Debugf("evicted log %s (last accessed %s ago)", oldestID, c.now().Sub(oldest).Round(time.Second))
	}
}
