package cart

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests and single-node development.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]map[string]int64)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.carts[sessionID]))
	for k, v := range s.carts[sessionID] {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Add(_ context.Context, sessionID, key string, quantity int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts[sessionID] == nil {
		s.carts[sessionID] = make(map[string]int64)
	}
	s.carts[sessionID][key] += quantity
	return s.carts[sessionID][key], nil
}

func (s *MemoryStore) Remove(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts[sessionID], key)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	return nil
}
