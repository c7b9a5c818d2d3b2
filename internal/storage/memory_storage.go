package storage

import (
	"context"
	"sync"
)

// MemoryBackend keeps values in process memory. Used by tests and STORAGE_DRIVER=memory.
type MemoryBackend struct {
	values map[string]string
	mu     sync.RWMutex
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		values: make(map[string]string),
	}
}

func (s *MemoryBackend) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryBackend) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}
