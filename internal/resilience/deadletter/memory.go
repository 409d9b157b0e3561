package deadletter

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in an in-memory slice. It is the default
// backend.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStore) Drain(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.entries
	s.entries = nil
	return out, nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *MemoryStore) DropOldest(_ context.Context, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n >= len(s.entries) {
		s.entries = nil
		return nil
	}
	s.entries = s.entries[n:]
	return nil
}

func (s *MemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Entries are insertion-ordered, so expired entries form a prefix.
	i := 0
	for i < len(s.entries) && s.entries[i].EnqueuedAt.Before(cutoff) {
		i++
	}
	s.entries = s.entries[i:]
	return i, nil
}

func (s *MemoryStore) Close() error { return nil }
