package escape

import (
	"sync"
	"time"
)

// Entry is one accepted synthesis result. Entries are immutable: the key is
// content-derived, so the same key always names the same code, and a second
// Put with an existing key is a no-op.
type Entry struct {
	Key       string    `json:"key"`
	PatternID string    `json:"pattern_id"`
	Target    string    `json:"target"`
	Code      string    `json:"code"`
	Verdict   string    `json:"verdict"`
	CreatedAt time.Time `json:"created_at"`
}

// Cache stores accepted synthesis results by content key. Only validated
// code is ever written.
type Cache interface {
	// Get returns the entry for key, or ok=false on a miss.
	Get(key string) (Entry, bool, error)

	// Put stores an entry. Writing an existing key is a no-op.
	Put(entry Entry) error
}

// StaleFunc decides whether a cache hit should be re-synthesized anyway.
// Entries never expire on their own; staleness policy is the caller's.
type StaleFunc func(Entry) bool

// MemoryCache is a process-local Cache for tests and cache-disabled runs.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func (c *MemoryCache) Get(key string) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return entry, ok, nil
}

func (c *MemoryCache) Put(entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[entry.Key]; !exists {
		c.entries[entry.Key] = entry
	}
	return nil
}

// Len reports the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
