package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process WindowStore for tests and redis-less
// deployments. Entries are swept lazily on PruneCount and by Sweep, which
// the daemon runs as a periodic maintenance pass.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
}

type memoryWindow struct {
	entries   []time.Time
	expiresAt time.Time
}

// NewMemoryStore returns an empty in-memory window store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*memoryWindow)}
}

// PruneCount implements WindowStore.
func (s *MemoryStore) PruneCount(_ context.Context, key string, cutoff time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		return 0, time.Time{}, nil
	}

	kept := w.entries[:0]
	for _, at := range w.entries {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	w.entries = kept

	if len(w.entries) == 0 {
		delete(s.windows, key)
		return 0, time.Time{}, nil
	}
	return len(w.entries), w.entries[0], nil
}

// Add implements WindowStore.
func (s *MemoryStore) Add(_ context.Context, key string, at time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		w = &memoryWindow{}
		s.windows[key] = w
	}
	w.entries = append(w.entries, at)
	w.expiresAt = at.Add(ttl)
	return nil
}

// Sweep drops identifiers whose ttl has passed.
func (s *MemoryStore) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, w := range s.windows {
		if w.expiresAt.Before(now) {
			delete(s.windows, key)
		}
	}
}

// Len returns the number of tracked identifiers.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
