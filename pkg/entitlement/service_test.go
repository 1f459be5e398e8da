package entitlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunaria/entitlement/pkg/entitlement"
	"github.com/lunaria/entitlement/pkg/subscription"
	"github.com/lunaria/entitlement/pkg/tier"
	"github.com/lunaria/entitlement/pkg/usage"
)

// newTestService wires the full stack on in-memory stores with a pinned
// clock.
func newTestService(t *testing.T, records subscription.RecordStore, usageStore usage.Store, at time.Time) entitlement.Service {
	t.Helper()

	resolver := entitlement.NewResolver(records, usageStore, testCatalog(t),
		entitlement.WithResolverClock(fixedClock(at)))
	cache := entitlement.NewCache(resolver,
		entitlement.WithTTL(time.Minute),
		entitlement.WithCacheClock(fixedClock(at)),
	)
	recorder := entitlement.NewRecorder(usageStore,
		entitlement.WithInvalidator(cache),
		entitlement.WithRecorderClock(fixedClock(at)),
	)
	return entitlement.NewService(cache, recorder)
}

func TestService_FreeTierQuotaLifecycle(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()
	usageStore := usage.NewMemStore()

	// Two of the three free numerology readings already used this month.
	for range 2 {
		require.NoError(t, usageStore.Append(context.Background(), usage.Event{
			UserID:    userID,
			Feature:   usage.FeatureNumerology,
			Timestamp: now.Add(-24 * time.Hour),
		}))
	}

	svc := newTestService(t, subscription.NewMemStore(), usageStore, now)

	d, err := svc.CheckAccess(context.Background(), userID, usage.FeatureNumerology)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.EqualValues(t, 1, d.Remaining)

	d, err = svc.UseFeature(context.Background(), userID, usage.FeatureNumerology)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.EqualValues(t, 0, d.Remaining)

	// The quota is now exhausted and no event is recorded for the denial.
	d, err = svc.UseFeature(context.Background(), userID, usage.FeatureNumerology)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, entitlement.DenyQuotaExceeded, d.Reason)
	assert.EqualValues(t, 3, usageStore.Len())
}

func TestService_UnlimitedTierNeverExhausts(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	records := subscription.NewMemStore()
	periodEnd := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, records.Save(context.Background(), &subscription.Record{
		UserID:      userID,
		TierID:      tier.TierUnlimited,
		Status:      subscription.StatusActive,
		PeriodStart: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   &periodEnd,
	}))

	usageStore := usage.NewMemStore()
	for range 500 {
		require.NoError(t, usageStore.Append(context.Background(), usage.Event{
			UserID:    userID,
			Feature:   usage.FeatureNumerology,
			Timestamp: now.Add(-time.Hour),
		}))
	}

	svc := newTestService(t, records, usageStore, now)

	d, err := svc.UseFeature(context.Background(), userID, usage.FeatureNumerology)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.EqualValues(t, tier.Unlimited, d.Remaining)
}

func TestService_SubscriptionStoreDownDeniesDegraded(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, failingRecordStore{}, usage.NewMemStore(), now)

	d, err := svc.CheckAccess(context.Background(), uuid.New(), usage.FeatureNumerology)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, entitlement.DenyDegraded, d.Reason)
}

func TestService_UseFeature_IdempotentRetry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()
	usageStore := usage.NewMemStore()
	svc := newTestService(t, subscription.NewMemStore(), usageStore, now)

	d, err := svc.UseFeature(context.Background(), userID, usage.FeatureNumerology,
		entitlement.WithIdempotencyKey("req-42"))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.EqualValues(t, 2, d.Remaining)

	// The retried request consumes nothing further.
	d, err = svc.UseFeature(context.Background(), userID, usage.FeatureNumerology,
		entitlement.WithIdempotencyKey("req-42"))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.EqualValues(t, 2, d.Remaining)
	assert.Equal(t, 1, usageStore.Len())
}

func TestService_InvalidFeature(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, subscription.NewMemStore(), usage.NewMemStore(), now)

	_, err := svc.CheckAccess(context.Background(), uuid.New(), usage.Feature("tarot"))
	assert.ErrorIs(t, err, entitlement.ErrInvalidFeature)

	_, err = svc.UseFeature(context.Background(), uuid.New(), usage.Feature("tarot"))
	assert.ErrorIs(t, err, entitlement.ErrInvalidFeature)
}

func TestService_GetEntitlementSnapshot(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()
	svc := newTestService(t, subscription.NewMemStore(), usage.NewMemStore(), now)

	ent, err := svc.GetEntitlement(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, ent.UserID)
	assert.Equal(t, tier.TierFree, ent.TierID)
	assert.Len(t, ent.Features, 3)
}
