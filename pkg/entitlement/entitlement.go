package entitlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/lunaria/entitlement/pkg/tier"
	"github.com/lunaria/entitlement/pkg/usage"
)

// DegradedReason explains why an entitlement was computed without full
// confidence in its inputs.
type DegradedReason string

const (
	// DegradedSubscriptionUnavailable: the subscription record store was
	// unreachable, so free-tier defaults were applied.
	DegradedSubscriptionUnavailable DegradedReason = "subscription_unavailable"

	// DegradedUsageUnavailable: the usage store was unreachable, so usage is
	// unknown and every feature is reported as not usable (fail closed).
	DegradedUsageUnavailable DegradedReason = "usage_unavailable"
)

// FeatureUsage is the resolved quota state of one feature for the current
// billing period.
type FeatureUsage struct {
	Limit     int64 // -1 means unlimited
	Used      int64
	Remaining int64 // -1 if unlimited, else max(0, Limit-Used)
	CanUse    bool
}

// Entitlement is the point-in-time answer to "what can this user do right
// now". It is derived from the subscription record, the usage log and the
// tier catalog; it is never persisted, only cached briefly.
type Entitlement struct {
	UserID uuid.UUID
	TierID tier.ID

	// The billing period window the usage counts were computed over,
	// as a half-open interval [PeriodStart, PeriodEnd).
	PeriodStart time.Time
	PeriodEnd   time.Time

	Features map[usage.Feature]FeatureUsage

	// Degraded marks a snapshot computed while a dependency was
	// unreachable. Callers should surface uncertainty ("couldn't verify
	// your plan") rather than a hard upgrade prompt.
	Degraded       bool
	DegradedReason DegradedReason

	ResolvedAt time.Time
}

// Usage returns the resolved usage for a feature and whether the current
// tier meters it at all.
func (e *Entitlement) Usage(f usage.Feature) (FeatureUsage, bool) {
	fu, ok := e.Features[f]
	return fu, ok
}

// featureUsage derives the per-feature quota state from a limit and a
// period usage count.
func featureUsage(limit, used int64) FeatureUsage {
	if limit == tier.Unlimited {
		return FeatureUsage{Limit: limit, Used: used, Remaining: tier.Unlimited, CanUse: true}
	}
	return FeatureUsage{
		Limit:     limit,
		Used:      used,
		Remaining: max(0, limit-used),
		CanUse:    used < limit,
	}
}
