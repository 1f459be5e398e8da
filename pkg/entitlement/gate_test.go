package entitlement_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/lunaria/entitlement/pkg/entitlement"
	"github.com/lunaria/entitlement/pkg/tier"
	"github.com/lunaria/entitlement/pkg/usage"
)

func snapshot(features map[usage.Feature]entitlement.FeatureUsage) *entitlement.Entitlement {
	return &entitlement.Entitlement{
		UserID:   uuid.New(),
		TierID:   tier.TierFree,
		Features: features,
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	t.Run("allowed with remaining", func(t *testing.T) {
		t.Parallel()
		ent := snapshot(map[usage.Feature]entitlement.FeatureUsage{
			usage.FeatureNumerology: {Limit: 3, Used: 1, Remaining: 2, CanUse: true},
		})

		d := entitlement.Check(ent, usage.FeatureNumerology)

		assert.True(t, d.Allowed)
		assert.EqualValues(t, 2, d.Remaining)
		assert.Empty(t, d.Reason)
	})

	t.Run("unlimited reports -1", func(t *testing.T) {
		t.Parallel()
		ent := snapshot(map[usage.Feature]entitlement.FeatureUsage{
			usage.FeatureNumerology: {Limit: tier.Unlimited, Used: 500, Remaining: tier.Unlimited, CanUse: true},
		})

		d := entitlement.Check(ent, usage.FeatureNumerology)

		assert.True(t, d.Allowed)
		assert.EqualValues(t, tier.Unlimited, d.Remaining)
	})

	t.Run("quota exceeded", func(t *testing.T) {
		t.Parallel()
		ent := snapshot(map[usage.Feature]entitlement.FeatureUsage{
			usage.FeatureLoveMatch: {Limit: 1, Used: 1, Remaining: 0, CanUse: false},
		})

		d := entitlement.Check(ent, usage.FeatureLoveMatch)

		assert.False(t, d.Allowed)
		assert.EqualValues(t, 0, d.Remaining)
		assert.Equal(t, entitlement.DenyQuotaExceeded, d.Reason)
	})

	t.Run("feature not in tier", func(t *testing.T) {
		t.Parallel()
		ent := snapshot(map[usage.Feature]entitlement.FeatureUsage{
			usage.FeatureNumerology: {Limit: 3, Remaining: 3, CanUse: true},
		})

		d := entitlement.Check(ent, usage.FeatureTrustAssessment)

		assert.False(t, d.Allowed)
		assert.Equal(t, entitlement.DenyFeatureNotInTier, d.Reason)
	})

	t.Run("degraded denies regardless of usage", func(t *testing.T) {
		t.Parallel()
		ent := snapshot(map[usage.Feature]entitlement.FeatureUsage{
			usage.FeatureNumerology: {Limit: 3, Used: 0, Remaining: 3, CanUse: true},
		})
		ent.Degraded = true
		ent.DegradedReason = entitlement.DegradedSubscriptionUnavailable

		d := entitlement.Check(ent, usage.FeatureNumerology)

		assert.False(t, d.Allowed)
		assert.Equal(t, entitlement.DenyDegraded, d.Reason)
	})

	t.Run("nil snapshot denies degraded", func(t *testing.T) {
		t.Parallel()
		d := entitlement.Check(nil, usage.FeatureNumerology)

		assert.False(t, d.Allowed)
		assert.Equal(t, entitlement.DenyDegraded, d.Reason)
	})
}
