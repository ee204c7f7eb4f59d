// ABOUTME: In-memory Store implementation for tests and ephemeral runs
// ABOUTME: Supports fault injection so store-boundary degradation is testable

package kv

import (
	"context"
	"sync"
)

// MemoryStore implements Store with a mutex-guarded map.
// FailReads/FailWrites force the next operations to return FailErr,
// letting tests exercise the storage-fault degradation paths.
type MemoryStore struct {
	mu         sync.RWMutex
	data       map[string]string
	FailReads  bool
	FailWrites bool
	FailErr    error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.FailReads {
		return "", s.FailErr
	}
	value, ok := s.data[key]
	if !ok {
		return "", ErrNoValue
	}
	return value, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return s.FailErr
	}
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return s.FailErr
	}
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Len returns the number of stored keys. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
