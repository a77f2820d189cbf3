// Package dedupe remembers which article versions the indexer has already written.
package dedupe

import (
	"sync"
	"time"
)

type mark struct {
	version string
	at      time.Time
}

type entry struct {
	id string
	at time.Time
}

// Cache is a bounded, TTL-limited map of article ID to the last indexed
// version. A new version of a known ID is not a duplicate, so re-collected
// articles with a changed score or rank are indexed again.
type Cache struct {
	mu       sync.Mutex
	marks    map[string]mark
	order    []entry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache holding at most capacity IDs for ttl each.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		marks:    make(map[string]mark, capacity),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Seen reports whether id was marked with the same version inside the ttl window.
func (c *Cache) Seen(id, version string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.marks[id]
	if !ok || m.version != version {
		return false
	}
	return c.now().Sub(m.at) <= c.ttl
}

// Mark records version as the latest indexed version of id.
func (c *Cache) Mark(id, version string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.marks[id] = mark{version: version, at: now}
	c.order = append(c.order, entry{id: id, at: now})
	c.compact(now)
}

// Len returns the number of IDs currently remembered.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.marks)
}

// compact drops expired IDs and, past capacity, the least recently marked ones.
// order may hold stale entries for re-marked IDs; those are skipped.
func (c *Cache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.marks) > c.capacity || c.order[0].at.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if m, ok := c.marks[oldest.id]; ok && m.at.Equal(oldest.at) {
			delete(c.marks, oldest.id)
		}
	}
}
