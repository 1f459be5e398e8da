package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunaria/entitlement/pkg/billing"
	"github.com/lunaria/entitlement/pkg/subscription"
	"github.com/lunaria/entitlement/pkg/tier"
)

// fakeProvider returns a canned event without signature verification.
type fakeProvider struct {
	event *billing.WebhookEvent
	err   error
}

func (f *fakeProvider) ParseWebhook(context.Context, []byte, string) (*billing.WebhookEvent, error) {
	return f.event, f.err
}

type spyRecordInvalidator struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (s *spyRecordInvalidator) InvalidateOnRecordChange(userID uuid.UUID) {
	s.mu.Lock()
	s.calls = append(s.calls, userID)
	s.mu.Unlock()
}

func (s *spyRecordInvalidator) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func timePtr(t time.Time) *time.Time { return &t }

func TestSyncer_Apply_SubscriptionCreated(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemStore()
	inv := &spyRecordInvalidator{}
	s := billing.NewSyncer(&fakeProvider{}, store, billing.WithRecordInvalidator(inv))

	userID := uuid.New()
	err := s.Apply(context.Background(), &billing.WebhookEvent{
		Type:           billing.EventSubscriptionCreated,
		SubscriptionID: "sub_123",
		CustomerID:     "ctm_456",
		UserID:         userID.String(),
		TierID:         "premium",
		Status:         "active",
		PeriodStart:    timePtr(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)),
		PeriodEnd:      timePtr(time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	rec, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, tier.TierPremium, rec.TierID)
	assert.Equal(t, subscription.StatusActive, rec.Status)
	assert.Equal(t, "sub_123", rec.ProviderSubID)
	assert.Equal(t, "ctm_456", rec.ProviderCustomerID)
	require.NotNil(t, rec.PeriodEnd)
	assert.Equal(t, time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC), *rec.PeriodEnd)

	assert.Equal(t, 1, inv.count())
}

func TestSyncer_Apply_TrialingGrantsActive(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemStore()
	s := billing.NewSyncer(&fakeProvider{}, store)

	userID := uuid.New()
	require.NoError(t, s.Apply(context.Background(), &billing.WebhookEvent{
		Type:   billing.EventSubscriptionCreated,
		UserID: userID.String(),
		TierID: "premium",
		Status: "trialing",
	}))

	rec, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, rec.Status)
}

func TestSyncer_Apply_UpdatePreservesExistingFields(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemStore()
	s := billing.NewSyncer(&fakeProvider{}, store)
	userID := uuid.New()

	require.NoError(t, s.Apply(context.Background(), &billing.WebhookEvent{
		Type:           billing.EventSubscriptionCreated,
		SubscriptionID: "sub_123",
		UserID:         userID.String(),
		TierID:         "premium",
		Status:         "active",
	}))

	// A later update without a tier keeps the one already on record.
	require.NoError(t, s.Apply(context.Background(), &billing.WebhookEvent{
		Type:   billing.EventSubscriptionUpdated,
		UserID: userID.String(),
		Status: "past_due",
	}))

	rec, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, tier.TierPremium, rec.TierID)
	assert.Equal(t, subscription.StatusPastDue, rec.Status)
	assert.Equal(t, "sub_123", rec.ProviderSubID)
}

func TestSyncer_Apply_Canceled(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemStore()
	inv := &spyRecordInvalidator{}
	s := billing.NewSyncer(&fakeProvider{}, store, billing.WithRecordInvalidator(inv))
	userID := uuid.New()

	require.NoError(t, s.Apply(context.Background(), &billing.WebhookEvent{
		Type:   billing.EventSubscriptionCreated,
		UserID: userID.String(),
		TierID: "premium",
		Status: "active",
	}))

	require.NoError(t, s.Apply(context.Background(), &billing.WebhookEvent{
		Type:   billing.EventSubscriptionCanceled,
		UserID: userID.String(),
	}))

	rec, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCanceled, rec.Status)
	assert.Equal(t, 2, inv.count())
}

func TestSyncer_Apply_PaymentFailed(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemStore()
	s := billing.NewSyncer(&fakeProvider{}, store)
	userID := uuid.New()

	require.NoError(t, s.Apply(context.Background(), &billing.WebhookEvent{
		Type:   billing.EventSubscriptionCreated,
		UserID: userID.String(),
		TierID: "premium",
		Status: "active",
	}))

	require.NoError(t, s.Apply(context.Background(), &billing.WebhookEvent{
		Type:   billing.EventPaymentFailed,
		UserID: userID.String(),
	}))

	rec, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPastDue, rec.Status)
}

func TestSyncer_Apply_TransitionForUnknownUserIsNoop(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemStore()
	inv := &spyRecordInvalidator{}
	s := billing.NewSyncer(&fakeProvider{}, store, billing.WithRecordInvalidator(inv))

	userID := uuid.New()
	err := s.Apply(context.Background(), &billing.WebhookEvent{
		Type:   billing.EventSubscriptionCanceled,
		UserID: userID.String(),
	})

	require.NoError(t, err)
	_, getErr := store.Get(context.Background(), userID)
	assert.ErrorIs(t, getErr, subscription.ErrRecordNotFound)
}

func TestSyncer_Apply_UnmappedEventWithoutUserIDAcknowledged(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemStore()
	inv := &spyRecordInvalidator{}
	s := billing.NewSyncer(&fakeProvider{}, store, billing.WithRecordInvalidator(inv))

	// Provider events outside the subscription lifecycle carry no custom
	// data; they must be acknowledged, not rejected for the missing user id.
	err := s.Apply(context.Background(), &billing.WebhookEvent{
		Type:          billing.EventType("adjustment.created"),
		ProviderEvent: "adjustment.created",
	})

	require.NoError(t, err)
	assert.Equal(t, 0, inv.count())
}

func TestSyncer_Apply_InvalidUserID(t *testing.T) {
	t.Parallel()

	s := billing.NewSyncer(&fakeProvider{}, subscription.NewMemStore())

	err := s.Apply(context.Background(), &billing.WebhookEvent{
		Type:   billing.EventSubscriptionCreated,
		UserID: "not-a-uuid",
	})

	assert.ErrorIs(t, err, billing.ErrInvalidUserID)
}

func TestSyncer_Apply_UnrecognizedStatusNeverGrantsAccess(t *testing.T) {
	t.Parallel()

	store := subscription.NewMemStore()
	s := billing.NewSyncer(&fakeProvider{}, store)
	userID := uuid.New()

	require.NoError(t, s.Apply(context.Background(), &billing.WebhookEvent{
		Type:   billing.EventSubscriptionCreated,
		UserID: userID.String(),
		TierID: "premium",
		Status: "something_new",
	}))

	rec, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusIncomplete, rec.Status)
}

func TestSyncer_HandleWebhook_ProviderErrorPropagates(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{err: billing.ErrWebhookVerificationFailed}
	s := billing.NewSyncer(provider, subscription.NewMemStore())

	err := s.HandleWebhook(context.Background(), []byte(`{}`), "bad-signature")

	assert.ErrorIs(t, err, billing.ErrWebhookVerificationFailed)
}
