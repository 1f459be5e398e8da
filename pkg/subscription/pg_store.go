package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunaria/entitlement/pkg/pg"
	"github.com/lunaria/entitlement/pkg/tier"
)

// PGStore is a PostgreSQL-backed RecordStore.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a RecordStore backed by the given connection pool.
// Panics if pool is nil to fail fast during initialization.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("subscription: pgxpool is required")
	}
	return &PGStore{pool: pool}
}

// Get retrieves the subscription record for a user.
func (s *PGStore) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	var (
		rec    Record
		tierID string
		status string
	)

	err := s.pool.QueryRow(ctx,
		`SELECT user_id, tier_id, status, period_start, period_end,
		        provider_customer_id, provider_sub_id, created_at, updated_at
		 FROM subscription_records WHERE user_id = $1`,
		userID,
	).Scan(&rec.UserID, &tierID, &status, &rec.PeriodStart, &rec.PeriodEnd,
		&rec.ProviderCustomerID, &rec.ProviderSubID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrRecordNotFound
		}
		return nil, errors.Join(ErrFailedToGetRecord, err)
	}

	rec.TierID = tier.ID(tierID)
	rec.Status = Status(status)
	return &rec, nil
}

// Save upserts a record keyed by user ID.
func (s *PGStore) Save(ctx context.Context, record *Record) error {
	if record == nil || record.UserID == uuid.Nil {
		return ErrInvalidRecord
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscription_records
		   (user_id, tier_id, status, period_start, period_end,
		    provider_customer_id, provider_sub_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (user_id) DO UPDATE SET
		   tier_id = EXCLUDED.tier_id,
		   status = EXCLUDED.status,
		   period_start = EXCLUDED.period_start,
		   period_end = EXCLUDED.period_end,
		   provider_customer_id = EXCLUDED.provider_customer_id,
		   provider_sub_id = EXCLUDED.provider_sub_id,
		   updated_at = EXCLUDED.updated_at`,
		record.UserID, string(record.TierID), string(record.Status),
		record.PeriodStart, record.PeriodEnd,
		record.ProviderCustomerID, record.ProviderSubID,
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return errors.Join(ErrFailedToSaveRecord, err)
	}

	return nil
}
