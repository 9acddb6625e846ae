package state

import (
	"sync"
	"time"
)

// BrandCache remembers the last brand each user resolved in a thread, so a
// deposit invoice started right after a brand lookup does not ask for the
// brand name again. Entries expire lazily on read.
type BrandCache struct {
	mu      sync.Mutex
	entries map[confirmKey]brandEntry
	ttl     time.Duration
}

type brandEntry struct {
	name    string
	touched time.Time
}

func NewBrandCache(ttl time.Duration) *BrandCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &BrandCache{
		entries: make(map[confirmKey]brandEntry),
		ttl:     ttl,
	}
}

func (c *BrandCache) Put(senderID, threadID, name string) {
	if name == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[confirmKey{senderID, threadID}] = brandEntry{name: name, touched: time.Now()}
}

// Get returns the cached brand for (sender, thread), or "" when none is
// cached or the entry has expired.
func (c *BrandCache) Get(senderID, threadID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := confirmKey{senderID, threadID}
	entry, ok := c.entries[key]
	if !ok {
		return ""
	}
	if time.Since(entry.touched) > c.ttl {
		delete(c.entries, key)
		return ""
	}
	return entry.name
}
