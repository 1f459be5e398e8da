package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lunaria/entitlement/pkg/logger"
	"github.com/lunaria/entitlement/pkg/usage"
)

// Invalidator discards cached entitlements after a usage write so the next
// read reflects the new count. *Cache satisfies it.
type Invalidator interface {
	Invalidate(userID uuid.UUID)
}

// Recorder appends usage events for approved gated actions.
// It must only be called after Check returned Allowed for the same request;
// it does not re-check quota, but it does defend against double counting via
// store-enforced idempotency keys.
type Recorder struct {
	store usage.Store
	cache Invalidator
	log   *slog.Logger
	now   func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithInvalidator wires the entitlement cache invalidated after each
// successful write.
func WithInvalidator(cache Invalidator) RecorderOption {
	return func(r *Recorder) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// WithRecorderLogger sets the logger for lost-write reporting.
func WithRecorderLogger(log *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if log != nil {
			r.log = log
		}
	}
}

// WithRecorderClock overrides the time source for tests.
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecorder creates a Recorder.
// Panics if store is nil to fail fast during initialization.
func NewRecorder(store usage.Store, opts ...RecorderOption) *Recorder {
	if store == nil {
		panic("entitlement: usage.Store is required")
	}

	r := &Recorder{
		store: store,
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordOption carries the optional parts of one usage record.
type RecordOption func(*usage.Event)

// WithIdempotencyKey deduplicates retried requests: at most one event per
// (user, feature, key) is ever stored.
func WithIdempotencyKey(key string) RecordOption {
	return func(e *usage.Event) {
		e.IdempotencyKey = key
	}
}

// WithMetadata attaches free-form metadata to the event.
func WithMetadata(metadata map[string]string) RecordOption {
	return func(e *usage.Event) {
		if len(metadata) > 0 {
			e.Metadata = metadata
		}
	}
}

// Record appends one usage event for an approved action.
//
// A duplicate idempotency key is a no-op success: the action was already
// counted. A store failure is returned as ErrRecordingFailed after being
// logged loudly; the caller's action already happened, so the quota
// decrement is silently lost in the user's favor rather than blocking them.
func (r *Recorder) Record(ctx context.Context, userID uuid.UUID, feature usage.Feature, opts ...RecordOption) error {
	if !feature.Valid() {
		return ErrInvalidFeature
	}

	event := usage.Event{
		ID:        uuid.New(),
		UserID:    userID,
		Feature:   feature,
		Timestamp: r.now().UTC(),
	}
	for _, opt := range opts {
		opt(&event)
	}

	err := r.store.Append(ctx, event)
	switch {
	case err == nil:
	case errors.Is(err, usage.ErrDuplicateEvent):
		r.log.DebugContext(ctx, "usage event already recorded, treating as success",
			logger.Component("entitlement.recorder"),
			logger.UserID(userID),
			logger.Feature(feature.String()),
			slog.String("idempotency_key", event.IdempotencyKey),
		)
		return nil
	default:
		r.log.ErrorContext(ctx, "usage recording failed, quota decrement lost",
			logger.Component("entitlement.recorder"),
			logger.UserID(userID),
			logger.Feature(feature.String()),
			logger.Error(err),
		)
		return errors.Join(ErrRecordingFailed, err)
	}

	if r.cache != nil {
		r.cache.Invalidate(userID)
	}

	return nil
}
