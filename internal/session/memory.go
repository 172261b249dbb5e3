package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store.
type MemoryStore[T any] struct {
	mu       sync.Mutex
	sessions map[string]entry[T]
	policy   Policy
	now      Clock
}

// NewMemoryStore creates an empty store. now may be nil for the wall clock.
func NewMemoryStore[T any](policy Policy, now Clock) *MemoryStore[T] {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore[T]{
		sessions: make(map[string]entry[T]),
		policy:   policy,
		now:      now,
	}
}

// Get returns the session for key.
func (s *MemoryStore[T]) Get(_ context.Context, key string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	e, ok := s.sessions[key]
	if !ok {
		return zero, ErrNotFound
	}
	if s.policy.Expired(e.CreatedAt, s.now()) {
		delete(s.sessions, key)
		return zero, ErrExpired
	}
	return e.Value, nil
}

// Set stores value, keeping the creation time of an existing session.
func (s *MemoryStore[T]) Set(_ context.Context, key string, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now()
	if e, ok := s.sessions[key]; ok {
		createdAt = e.CreatedAt
	}
	s.sessions[key] = entry[T]{Value: value, CreatedAt: createdAt}
	return nil
}

// Delete removes the session for key.
func (s *MemoryStore[T]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}

// Sweep removes stale sessions.
func (s *MemoryStore[T]) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.sessions {
		if s.policy.Stale(e.CreatedAt, now) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired or not.
func (s *MemoryStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
