package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory RecordStore for tests and local development.
type MemStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
}

// NewMemStore returns an empty in-memory RecordStore.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[uuid.UUID]Record)}
}

// Get retrieves the subscription record for a user.
func (s *MemStore) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrRecordNotFound
	}

	// Copy so callers cannot mutate stored state.
	out := rec
	if rec.PeriodEnd != nil {
		end := *rec.PeriodEnd
		out.PeriodEnd = &end
	}
	return &out, nil
}

// Save upserts a record keyed by user ID.
func (s *MemStore) Save(ctx context.Context, record *Record) error {
	if record == nil || record.UserID == uuid.Nil {
		return ErrInvalidRecord
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *record
	if record.PeriodEnd != nil {
		end := *record.PeriodEnd
		stored.PeriodEnd = &end
	}
	s.records[record.UserID] = stored
	return nil
}

// Delete removes a record, primarily for test setup.
func (s *MemStore) Delete(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
}
