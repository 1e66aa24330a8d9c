package mapping

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[string]Mapping
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mappings: make(map[string]Mapping)}
}

// Save stores a copy of the mapping.
func (s *MemoryStore) Save(_ context.Context, postID string, m Mapping) error {
	cp := make(Mapping, len(m))
	for k, v := range m {
		cp[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[postID] = cp
	return nil
}

// Load returns a copy of the stored mapping, or ErrNotFound.
func (s *MemoryStore) Load(_ context.Context, postID string) (Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[postID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make(Mapping, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
