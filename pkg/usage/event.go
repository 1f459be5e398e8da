package usage

import (
	"time"

	"github.com/google/uuid"
)

// Event records that one unit of a gated feature was consumed.
// Events are append-only: they are never mutated or deleted by this module.
type Event struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Feature   Feature
	Timestamp time.Time

	// IdempotencyKey deduplicates retried requests. When set, at most one
	// event per (UserID, Feature, IdempotencyKey) is ever stored; the
	// uniqueness guarantee is enforced by the store, not the caller.
	IdempotencyKey string

	Metadata map[string]string
}
