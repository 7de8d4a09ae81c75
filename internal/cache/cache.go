package cache

import (
	"sync"
	"time"

	"github.com/deusflow/newsroom/internal/news"
)

// Snapshot holds the most recent aggregate batch and when it was fetched.
// The zero value is an empty cache. Readers get the stored slice itself, so
// callers must treat it as read-only.
type Snapshot struct {
	mu            sync.RWMutex
	items         []news.NewsItem
	lastFetchTime time.Time
}

func New() *Snapshot {
	return &Snapshot{}
}

// Get returns the cached items if the cache is non-empty and younger than
// ttl at now.
func (c *Snapshot) Get(now time.Time, ttl time.Duration) ([]news.NewsItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.items) == 0 {
		return nil, false
	}
	if now.Sub(c.lastFetchTime) >= ttl {
		return nil, false
	}
	return c.items, true
}

// Set replaces the cached batch. Last writer wins.
func (c *Snapshot) Set(items []news.NewsItem, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = items
	c.lastFetchTime = fetchedAt
}
