package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/lunaria/entitlement/pkg/tier"
)

// Status represents the current state of a subscription as reported by the
// billing provider.
type Status string

const (
	StatusActive     Status = "active"
	StatusCanceled   Status = "canceled"
	StatusPastDue    Status = "past_due"
	StatusIncomplete Status = "incomplete"
)

// Record is the locally replicated view of a user's subscription.
// The billing provider owns it; this system only reads it, and the webhook
// sync process (pkg/billing) is the sole writer. Absence of a record is a
// valid state meaning "free tier, no usage yet".
type Record struct {
	UserID      uuid.UUID // Primary key - one subscription per user
	TierID      tier.ID
	Status      Status
	PeriodStart time.Time
	PeriodEnd   *time.Time // Provider may omit it; callers fall back to calendar months

	// Provider-side identifiers, kept for support tooling and portal links.
	ProviderCustomerID string
	ProviderSubID      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive returns true if the subscription status is active.
func (r *Record) IsActive() bool {
	return r.Status == StatusActive
}

// IsLapsedAt reports whether the subscription no longer grants paid access
// at the given time: any non-active status, or an active record whose period
// already ended. A lapsed paid subscription reverts access immediately, not
// just at the next renewal.
func (r *Record) IsLapsedAt(now time.Time) bool {
	if !r.IsActive() {
		return true
	}
	return r.PeriodEnd != nil && r.PeriodEnd.Before(now)
}
