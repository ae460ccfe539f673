package confirm

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps pending confirmations in process memory. Single-instance
// only; used in tests and when the engine runs without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	pending map[string]Pending
}

// NewMemoryStore builds an in-memory confirmation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pending: make(map[string]Pending)}
}

// Put stores the confirmation, replacing any prior one for the user.
func (s *MemoryStore) Put(_ context.Context, p Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p.UserID] = p
	return nil
}

// Get fetches the user's confirmation, deleting and rejecting expired ones.
func (s *MemoryStore) Get(_ context.Context, userID string) (Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[userID]
	if !ok {
		return Pending{}, ErrNotFound
	}
	if time.Now().After(p.ExpiresAt) {
		delete(s.pending, userID)
		return Pending{}, ErrExpired
	}
	return p, nil
}

// Take removes and returns the user's confirmation under the store lock, so
// only one caller can consume it.
func (s *MemoryStore) Take(_ context.Context, userID string) (Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[userID]
	if !ok {
		return Pending{}, ErrNotFound
	}
	delete(s.pending, userID)
	if time.Now().After(p.ExpiresAt) {
		return Pending{}, ErrExpired
	}
	return p, nil
}

// Delete removes the user's confirmation.
func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, userID)
	return nil
}
