package blobstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
	data    map[string][]byte
}

// NewMemoryStore creates an empty in-memory store serving URLs under baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]Object),
		data:    make(map[string][]byte),
	}
}

// Put stores data under key; an existing key is left untouched.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.objects[key]; ok {
		return o.URL, nil
	}
	o := Object{
		Key:         key,
		URL:         s.baseURL + "/" + key,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   time.Now(),
	}
	s.objects[key] = o
	s.data[key] = append([]byte(nil), data...)
	return o.URL, nil
}

// List returns objects with the given key prefix, ordered by key.
func (s *MemoryStore) List(_ context.Context, prefix string) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var objects []Object
	for key, o := range s.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, o)
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Exists reports whether key is stored.
func (s *MemoryStore) Exists(_ context.Context, key string) (Object, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o, ok, nil
}

// Data returns the stored bytes for key, for tests.
func (s *MemoryStore) Data(key string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key]
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
