package tier

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/lunaria/entitlement/pkg/usage"
)

// Source defines how tiers are loaded into a Catalog.
type Source interface {
	Load(ctx context.Context) (map[ID]Tier, error)
}

// Catalog is the single source of truth for per-feature limits.
// No other component hard-codes a limit number; changing a limit is a config
// deploy, not a code change.
type Catalog struct {
	// Treated as immutable after construction; thread-safety depends on
	// this (no runtime modifications).
	tiers map[ID]Tier
}

// NewCatalog loads tiers from the given Source and validates them.
// Panics if src is nil to fail fast during initialization.
func NewCatalog(ctx context.Context, src Source) (*Catalog, error) {
	if src == nil {
		panic("tier: Source is required")
	}

	tiers, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}

	if err := validateTiers(tiers); err != nil {
		return nil, err
	}

	return &Catalog{tiers: tiers}, nil
}

// Get returns the tier for the given ID. Unknown IDs fall back to the free
// tier so a stale or corrupted subscription record can never grant more
// access than a free account.
func (c *Catalog) Get(id ID) Tier {
	if t, ok := c.tiers[id]; ok {
		return t.clone()
	}
	return c.tiers[TierFree].clone()
}

// All returns every tier sorted by ID.
func (c *Catalog) All() []Tier {
	out := make([]Tier, 0, len(c.tiers))
	for _, t := range c.tiers {
		out = append(out, t.clone())
	}
	slices.SortFunc(out, func(a, b Tier) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// validateTiers ensures tier configurations are internally consistent.
// Catches config-deploy mistakes early instead of at decision time.
func validateTiers(tiers map[ID]Tier) error {
	if _, ok := tiers[TierFree]; !ok {
		return errors.Join(ErrInvalidTierConfiguration,
			fmt.Errorf("catalog must define the %q tier, it is the fallback for unknown and lapsed subscriptions", TierFree))
	}

	for id, t := range tiers {
		if t.ID != id {
			return errors.Join(ErrInvalidTierConfiguration,
				fmt.Errorf("tier ID mismatch: map key %s != tier.ID %s", id, t.ID))
		}

		for feature, limit := range t.Limits {
			if !feature.Valid() {
				return errors.Join(ErrInvalidTierConfiguration,
					fmt.Errorf("tier %s has unknown feature %q", id, feature))
			}
			if limit < Unlimited {
				return errors.Join(ErrInvalidTierConfiguration,
					fmt.Errorf("tier %s has invalid limit %d for %s", id, limit, feature))
			}
		}
	}

	return nil
}

// DefaultTiers returns the built-in catalog used when no config file is
// deployed: free with small monthly allowances, premium with larger ones,
// and unlimited with no metering at all.
func DefaultTiers() map[ID]Tier {
	return map[ID]Tier{
		TierFree: {
			ID:   TierFree,
			Name: "Free",
			Limits: map[usage.Feature]int64{
				usage.FeatureNumerology:      3,
				usage.FeatureLoveMatch:       1,
				usage.FeatureTrustAssessment: 1,
			},
			Features: []string{
				"3 numerology readings per month",
				"1 love match per month",
				"1 trust assessment per month",
			},
		},
		TierPremium: {
			ID:   TierPremium,
			Name: "Premium",
			Limits: map[usage.Feature]int64{
				usage.FeatureNumerology:      50,
				usage.FeatureLoveMatch:       20,
				usage.FeatureTrustAssessment: 20,
			},
			Features: []string{
				"50 numerology readings per month",
				"20 love matches per month",
				"20 trust assessments per month",
				"Priority support",
			},
		},
		TierUnlimited: {
			ID:   TierUnlimited,
			Name: "Unlimited",
			Limits: map[usage.Feature]int64{
				usage.FeatureNumerology:      Unlimited,
				usage.FeatureLoveMatch:       Unlimited,
				usage.FeatureTrustAssessment: Unlimited,
			},
			Features: []string{
				"Unlimited numerology readings",
				"Unlimited love matches",
				"Unlimited trust assessments",
				"Priority support",
			},
		},
	}
}
