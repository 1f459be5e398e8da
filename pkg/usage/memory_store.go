package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store for tests and local development.
// It enforces the same idempotency-key uniqueness guarantee as the durable
// backends.
type MemStore struct {
	mu     sync.RWMutex
	events []Event
	keys   map[string]struct{} // (userID, feature, idempotencyKey)
}

// NewMemStore returns an empty in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{
		keys: make(map[string]struct{}),
	}
}

// CountInWindow returns the number of events for (userID, feature) in [from, to).
func (s *MemStore) CountInWindow(ctx context.Context, userID uuid.UUID, feature Feature, from, to time.Time) (int64, error) {
	if !feature.Valid() {
		return 0, ErrInvalidFeature
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, e := range s.events {
		if e.UserID != userID || e.Feature != feature {
			continue
		}
		if !e.Timestamp.Before(from) && e.Timestamp.Before(to) {
			count++
		}
	}
	return count, nil
}

// Append stores a single event.
func (s *MemStore) Append(ctx context.Context, event Event) error {
	if err := validateEvent(&event); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if event.IdempotencyKey != "" {
		key := fmt.Sprintf("%s:%s:%s", event.UserID, event.Feature, event.IdempotencyKey)
		if _, exists := s.keys[key]; exists {
			return ErrDuplicateEvent
		}
		s.keys[key] = struct{}{}
	}

	s.events = append(s.events, event)
	return nil
}

// Len returns the total number of stored events.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Events returns a copy of all stored events in append order.
func (s *MemStore) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
