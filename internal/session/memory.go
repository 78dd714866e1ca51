package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for tests and single-node development.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string]Attempt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[string]Attempt)}
}

func (s *MemoryStore) Reset(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := NewToken()
	s.attempts[sessionID] = Attempt{Token: token}
	return token, nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (Attempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[sessionID]
	return a, ok, nil
}

func (s *MemoryStore) Claim(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[sessionID]
	if !ok || a.Claimed {
		return false, nil
	}
	a.Claimed = true
	s.attempts[sessionID] = a
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[sessionID]
	if !ok {
		return nil
	}
	a.Claimed = false
	s.attempts[sessionID] = a
	return nil
}

func (s *MemoryStore) RecordOrder(_ context.Context, sessionID string, orderID uint, redirectURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.attempts[sessionID]
	a.OrderID = orderID
	a.RedirectURL = redirectURL
	s.attempts[sessionID] = a
	return nil
}
