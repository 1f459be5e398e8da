package tier

import (
	"maps"
	"slices"

	"github.com/lunaria/entitlement/pkg/usage"
)

// ID identifies a subscription tier.
type ID string

const (
	TierFree      ID = "free"
	TierPremium   ID = "premium"
	TierUnlimited ID = "unlimited"
)

const (
	// Unlimited indicates no limit for a feature (-1 chosen for SQL compatibility).
	Unlimited int64 = -1
)

// Tier describes a subscription plan: per-feature limits for one billing
// period plus a human-readable feature list for presentation. Immutable
// after catalog load.
type Tier struct {
	ID     ID
	Name   string
	Limits map[usage.Feature]int64 // -1 represents unlimited

	// Features is display copy for plan screens, not an access control list.
	// Access is decided from Limits only.
	Features []string
}

// Limit returns the limit for a feature and whether the tier meters it.
func (t Tier) Limit(f usage.Feature) (int64, bool) {
	limit, ok := t.Limits[f]
	return limit, ok
}

func (t Tier) clone() Tier {
	return Tier{
		ID:       t.ID,
		Name:     t.Name,
		Limits:   maps.Clone(t.Limits),
		Features: slices.Clone(t.Features),
	}
}
