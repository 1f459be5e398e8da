package usage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunaria/entitlement/pkg/pg"
)

// PGStore is a PostgreSQL-backed Store.
// Idempotency-key uniqueness is enforced by a partial unique index on
// (user_id, feature, idempotency_key), so deduplication holds even when
// multiple processes race on the same key.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Store backed by the given connection pool.
// Panics if pool is nil to fail fast during initialization.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("usage: pgxpool is required")
	}
	return &PGStore{pool: pool}
}

// CountInWindow returns the number of events for (userID, feature) in [from, to).
func (s *PGStore) CountInWindow(ctx context.Context, userID uuid.UUID, feature Feature, from, to time.Time) (int64, error) {
	if !feature.Valid() {
		return 0, ErrInvalidFeature
	}

	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM usage_events
		 WHERE user_id = $1 AND feature = $2 AND occurred_at >= $3 AND occurred_at < $4`,
		userID, string(feature), from, to,
	).Scan(&count)
	if err != nil {
		return 0, errors.Join(ErrFailedToCountEvents, err)
	}

	return count, nil
}

// Append stores a single event row.
func (s *PGStore) Append(ctx context.Context, event Event) error {
	if err := validateEvent(&event); err != nil {
		return err
	}

	var metadata []byte
	if len(event.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return errors.Join(ErrInvalidEvent, err)
		}
	}

	// NULL rather than empty string so the partial unique index only
	// applies to events that actually carry a key.
	var idempotencyKey *string
	if event.IdempotencyKey != "" {
		idempotencyKey = &event.IdempotencyKey
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO usage_events (id, user_id, feature, occurred_at, idempotency_key, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.UserID, string(event.Feature), event.Timestamp, idempotencyKey, metadata,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrDuplicateEvent
		}
		return errors.Join(ErrFailedToAppendEvent, err)
	}

	return nil
}

func validateEvent(event *Event) error {
	if !event.Feature.Valid() {
		return ErrInvalidFeature
	}
	if event.UserID == uuid.Nil {
		return ErrInvalidEvent
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return nil
}
