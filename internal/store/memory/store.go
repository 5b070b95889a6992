package memorystore

import (
	"context"
	"sync"

	"sparkchat-backend/internal/store"
)

// MemoryStore is a map-backed store.Store used in tests and as a throwaway
// backend when no durable storage is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// New returns an empty in-memory store.
func New() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get returns the value stored under key, or store.ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return val, nil
}

// Set writes value under key.
func (s *MemoryStore) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}
