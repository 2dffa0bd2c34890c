// Package memory keeps create-order responses in process memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dejobratic/bookstore/internal/orders/ports"
)

type entry struct {
	response ports.StoredResponse
	savedAt  time.Time
}

// Store replays create-order responses for retried requests until they are
// older than the retention window.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

// NewStore creates a store that forgets responses after ttl. A zero ttl
// keeps them for the life of the process.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Get returns nil when the key is unused or its response has expired.
func (s *Store) Get(_ context.Context, key string) (*ports.StoredResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || s.expired(e) {
		return nil, nil
	}
	resp := e.response
	resp.Body = append([]byte(nil), resp.Body...)
	return &resp, nil
}

// Save keeps the first live response for a key. An expired one is replaced.
func (s *Store) Save(_ context.Context, key string, response ports.StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && !s.expired(e) {
		return nil
	}
	response.Body = append([]byte(nil), response.Body...)
	s.entries[key] = entry{response: response, savedAt: s.now()}
	return nil
}

func (s *Store) expired(e entry) bool {
	return s.ttl > 0 && s.now().Sub(e.savedAt) >= s.ttl
}
