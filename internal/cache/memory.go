package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sitescout/sitescout/internal/search"
)

// Memory is a TTL-bounded in-process ResultCache for development and tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	res     search.Result
	expires time.Time
}

// NewMemory constructs a Memory cache. A non-positive ttl uses the redis
// default of 24h.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get fetches a live entry. Expired entries count as misses and are removed
// so the map cannot grow without bound across long runs.
func (c *Memory) Get(_ context.Context, url, term string) (search.Result, error) {
	key := Key(url, term)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return search.Result{}, search.ErrNotFound
	}
	if c.now().After(entry.expires) {
		c.mu.Lock()
		// Re-check under the write lock; a Put may have refreshed it.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return search.Result{}, search.ErrNotFound
	}
	return entry.res, nil
}

// Put stores the result, replacing any previous entry.
func (c *Memory) Put(_ context.Context, url, term string, res search.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[Key(url, term)] = memoryEntry{res: res, expires: c.now().Add(c.ttl)}
	return nil
}
