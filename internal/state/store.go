// Package state tracks in-progress multi-turn flows and pending
// confirmations. Everything here is in-memory only: entries do not survive a
// restart, and abandoned flows are reaped by a TTL janitor instead of
// leaking for the process lifetime.
package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sarabot/internal/domain"
	"sarabot/internal/metrics"
)

// Flow identifies which handler owns a thread's active flow.
type Flow string

const (
	FlowAgreement Flow = "agreement"
	FlowInvoice   Flow = "deposit_invoice"
)

// Entry is the stored state for one thread's active flow.
type Entry struct {
	Flow      Flow
	Stage     string
	Fields    map[string]string
	BrandData *domain.BrandData
	touched   time.Time
}

const defaultTTL = 30 * time.Minute

// Store maps thread IDs to flow entries. A thread owns at most one flow at a
// time: beginning a different flow type replaces the old entry.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
	logger  *slog.Logger
}

func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		logger:  logger,
	}
}

// Begin creates the flow entry for a thread. If the thread already owns a
// flow of a different type, that flow is cancelled first; this is the
// explicit cancel-and-restart behavior rather than a silent overwrite.
func (s *Store) Begin(threadID string, flow Flow, stage string, fields map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[threadID]; ok && old.Flow != flow {
		s.logger.Info("replacing active flow",
			"thread", threadID,
			"old_flow", string(old.Flow),
			"new_flow", string(flow),
		)
	}
	if fields == nil {
		fields = make(map[string]string)
	}
	s.entries[threadID] = &Entry{
		Flow:    flow,
		Stage:   stage,
		Fields:  fields,
		touched: time.Now(),
	}
}

// Get returns a copy of the thread's entry, or nil when the thread has no
// active flow.
func (s *Store) Get(threadID string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[threadID]
	if !ok {
		return nil
	}
	cp := *e
	cp.Fields = make(map[string]string, len(e.Fields))
	for k, v := range e.Fields {
		cp.Fields[k] = v
	}
	return &cp
}

// InFlow reports whether the thread currently owns a flow of the given type.
func (s *Store) InFlow(threadID string, flow Flow) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[threadID]
	return ok && e.Flow == flow
}

// Advance moves the thread's flow to a new stage, merging the given fields
// into the stored ones. It is a no-op when the thread has no active flow.
func (s *Store) Advance(threadID, stage string, fields map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[threadID]
	if !ok {
		return
	}
	e.Stage = stage
	for k, v := range fields {
		e.Fields[k] = v
	}
	e.touched = time.Now()
}

// SetBrandData attaches cached brand-lookup data to the thread's flow entry.
func (s *Store) SetBrandData(threadID string, data *domain.BrandData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[threadID]; ok {
		e.BrandData = data
		e.touched = time.Now()
	}
}

// End removes the thread's flow entry. Called on completion and on
// cancellation alike.
func (s *Store) End(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, threadID)
}

// Len returns the number of active flow entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Reap removes entries untouched for longer than the TTL and returns how
// many were dropped. The active-flow gauge only sees Inc on begin and Dec
// on completion, so reaped entries settle their Dec here.
func (s *Store) Reap() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.ttl)
	var dropped int
	for id, e := range s.entries {
		if e.touched.Before(cutoff) {
			delete(s.entries, id)
			metrics.ActiveFlows.Dec()
			dropped++
		}
	}
	return dropped
}

// Janitor reaps expired entries every interval until the context is done.
func (s *Store) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Reap(); n > 0 {
				s.logger.Info("reaped abandoned flows", "count", n)
			}
		}
	}
}
