package billing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lunaria/entitlement/pkg/logger"
	"github.com/lunaria/entitlement/pkg/subscription"
	"github.com/lunaria/entitlement/pkg/tier"
)

// RecordInvalidator discards cached entitlements when a subscription record
// changes. entitlement.Cache satisfies it.
type RecordInvalidator interface {
	InvalidateOnRecordChange(userID uuid.UUID)
}

// Syncer applies billing webhook events to the local subscription record
// store. It is the only writer of subscription records; everything else in
// the module reads them.
type Syncer struct {
	provider Provider
	store    subscription.RecordStore
	cache    RecordInvalidator
	log      *slog.Logger
	now      func() time.Time
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithRecordInvalidator wires the entitlement cache so record changes are
// visible on the next gating decision instead of after the cache TTL.
func WithRecordInvalidator(cache RecordInvalidator) SyncerOption {
	return func(s *Syncer) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithSyncerLogger sets the syncer logger.
func WithSyncerLogger(log *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSyncerClock overrides the time source for tests.
func WithSyncerClock(now func() time.Time) SyncerOption {
	return func(s *Syncer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSyncer creates a Syncer.
// Panics if required dependencies are nil to fail fast during initialization.
func NewSyncer(provider Provider, store subscription.RecordStore, opts ...SyncerOption) *Syncer {
	if provider == nil {
		panic("billing: Provider is required")
	}
	if store == nil {
		panic("billing: subscription.RecordStore is required")
	}

	s := &Syncer{
		provider: provider,
		store:    store,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleWebhook verifies, parses and applies one webhook delivery.
// Providers redeliver on non-2xx responses, so any returned error should
// map to a retryable HTTP status at the transport layer.
func (s *Syncer) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}
	return s.Apply(ctx, event)
}

// Apply updates the local record for one normalized event and invalidates
// the user's cached entitlement.
func (s *Syncer) Apply(ctx context.Context, event *WebhookEvent) error {
	// Unmapped events are acknowledged before anything is validated; they
	// often carry no custom data at all.
	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated,
		EventSubscriptionCanceled, EventPaymentFailed:
	default:
		s.log.DebugContext(ctx, "ignoring unmapped billing event",
			logger.Component("billing.syncer"),
			logger.EventType(string(event.Type)),
		)
		return nil
	}

	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return errors.Join(ErrInvalidUserID, err)
	}

	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		err = s.upsert(ctx, userID, event)

	case EventSubscriptionCanceled:
		err = s.transition(ctx, userID, subscription.StatusCanceled)

	case EventPaymentFailed:
		err = s.transition(ctx, userID, subscription.StatusPastDue)
	}
	if err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.InvalidateOnRecordChange(userID)
	}

	s.log.InfoContext(ctx, "subscription record synced",
		logger.Component("billing.syncer"),
		logger.UserID(userID),
		logger.EventType(string(event.Type)),
		logger.TierID(event.TierID),
	)
	return nil
}

func (s *Syncer) upsert(ctx context.Context, userID uuid.UUID, event *WebhookEvent) error {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, subscription.ErrRecordNotFound) {
			return errors.Join(ErrFailedToSyncRecord, err)
		}
		rec = &subscription.Record{UserID: userID}
	}

	if event.TierID != "" {
		rec.TierID = tier.ID(event.TierID)
	}
	rec.Status = mapProviderStatus(event.Status)
	if event.PeriodStart != nil {
		rec.PeriodStart = event.PeriodStart.UTC()
	}
	if event.PeriodEnd != nil {
		end := event.PeriodEnd.UTC()
		rec.PeriodEnd = &end
	} else {
		// Provider omitted the period end; the resolver falls back to
		// calendar months in that case.
		rec.PeriodEnd = nil
	}
	if event.CustomerID != "" {
		rec.ProviderCustomerID = event.CustomerID
	}
	if event.SubscriptionID != "" {
		rec.ProviderSubID = event.SubscriptionID
	}

	if err := s.store.Save(ctx, rec); err != nil {
		return errors.Join(ErrFailedToSyncRecord, err)
	}
	return nil
}

func (s *Syncer) transition(ctx context.Context, userID uuid.UUID, status subscription.Status) error {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		// A cancel or payment failure for a user we never saw a create for:
		// nothing to revert, the user is on free defaults anyway.
		if errors.Is(err, subscription.ErrRecordNotFound) {
			return nil
		}
		return errors.Join(ErrFailedToSyncRecord, err)
	}

	rec.Status = status
	if err := s.store.Save(ctx, rec); err != nil {
		return errors.Join(ErrFailedToSyncRecord, err)
	}
	return nil
}

// mapProviderStatus maps a provider-reported status to ours. Trialing
// grants access like active; anything unrecognized becomes incomplete,
// which never grants paid access.
func mapProviderStatus(status string) subscription.Status {
	switch strings.ToLower(status) {
	case "active", "trialing":
		return subscription.StatusActive
	case "past_due":
		return subscription.StatusPastDue
	case "canceled", "cancelled", "paused":
		return subscription.StatusCanceled
	default:
		return subscription.StatusIncomplete
	}
}
