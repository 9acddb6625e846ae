package state

import (
	"sync"
	"time"
)

// PendingEmail is a composed draft awaiting an explicit send/cancel reply.
type PendingEmail struct {
	Recipients []string
	Subject    string
	Body       string
}

// PendingBrand is a fuzzy brand match awaiting a yes/no reply.
type PendingBrand struct {
	Candidate string
	Ratio     float64
}

type confirmation struct {
	email   *PendingEmail
	brand   *PendingBrand
	touched time.Time
}

// Confirmations stores pending drafts keyed by (sender, thread), so two
// users in the same thread never resolve each other's confirmations.
type Confirmations struct {
	mu      sync.Mutex
	pending map[confirmKey]*confirmation
	ttl     time.Duration
}

type confirmKey struct {
	sender string
	thread string
}

func NewConfirmations(ttl time.Duration) *Confirmations {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Confirmations{
		pending: make(map[confirmKey]*confirmation),
		ttl:     ttl,
	}
}

func (c *Confirmations) PutEmail(senderID, threadID string, draft *PendingEmail) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[confirmKey{senderID, threadID}] = &confirmation{email: draft, touched: time.Now()}
}

// TakeEmail removes and returns the pending email draft for (sender, thread),
// or nil when there is none.
func (c *Confirmations) TakeEmail(senderID, threadID string) *PendingEmail {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := confirmKey{senderID, threadID}
	entry, ok := c.pending[key]
	if !ok || entry.email == nil {
		return nil
	}
	delete(c.pending, key)
	return entry.email
}

// HasEmail reports whether a draft is pending without consuming it.
func (c *Confirmations) HasEmail(senderID, threadID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.pending[confirmKey{senderID, threadID}]
	return ok && entry.email != nil
}

func (c *Confirmations) PutBrand(senderID, threadID string, pending *PendingBrand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[confirmKey{senderID, threadID}] = &confirmation{brand: pending, touched: time.Now()}
}

func (c *Confirmations) TakeBrand(senderID, threadID string) *PendingBrand {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := confirmKey{senderID, threadID}
	entry, ok := c.pending[key]
	if !ok || entry.brand == nil {
		return nil
	}
	delete(c.pending, key)
	return entry.brand
}

func (c *Confirmations) HasBrand(senderID, threadID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.pending[confirmKey{senderID, threadID}]
	return ok && entry.brand != nil
}

// Reap removes confirmations untouched for longer than the TTL.
func (c *Confirmations) Reap() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-c.ttl)
	var dropped int
	for key, entry := range c.pending {
		if entry.touched.Before(cutoff) {
			delete(c.pending, key)
			dropped++
		}
	}
	return dropped
}
