package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines the interface for durable usage event persistence.
// Implementations back the usage counting that entitlement decisions rely on,
// so CountInWindow must reflect every previously acknowledged Append.
type Store interface {
	// CountInWindow returns the number of events for (userID, feature) with
	// a timestamp in the half-open interval [from, to).
	CountInWindow(ctx context.Context, userID uuid.UUID, feature Feature, from, to time.Time) (int64, error)

	// Append stores a single event. If the event carries an idempotency key
	// that was already used for the same user and feature, Append stores
	// nothing and returns ErrDuplicateEvent.
	Append(ctx context.Context, event Event) error
}
