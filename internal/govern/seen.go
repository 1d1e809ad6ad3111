package govern

import (
	"sync"
	"time"
)

// seenSet is a short-lived identity set used by a single Source to skip
// re-fetch duplicates across its own pagination. Entries expire after ttl
// and are dropped on sweep.
type seenSet struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time // key -> first seen
	now     func() time.Time
}

func newSeenSet(ttl time.Duration) *seenSet {
	return &seenSet{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *seenSet) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.entries[key]
	if !ok {
		return false
	}
	if s.now().Sub(at) > s.ttl {
		delete(s.entries, key)
		return false
	}
	return true
}

func (s *seenSet) add(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = s.now()
}

func (s *seenSet) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	for key, at := range s.entries {
		if at.Before(cutoff) {
			delete(s.entries, key)
		}
	}
}

func (s *seenSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
