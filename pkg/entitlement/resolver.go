package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lunaria/entitlement/pkg/logger"
	"github.com/lunaria/entitlement/pkg/subscription"
	"github.com/lunaria/entitlement/pkg/tier"
	"github.com/lunaria/entitlement/pkg/usage"
)

const defaultCallTimeout = 3 * time.Second

// Resolver combines the subscription record store, the usage store and the
// tier catalog into a single Entitlement snapshot per user.
type Resolver struct {
	records subscription.RecordStore
	usage   usage.Store
	catalog *tier.Catalog
	log     *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger used for degradation warnings.
func WithResolverLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// WithCallTimeout bounds each remote store call. A store that hangs is
// treated as unreachable rather than blocking the gating decision.
func WithCallTimeout(timeout time.Duration) ResolverOption {
	return func(r *Resolver) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithResolverClock overrides the time source, for tests that pin the
// billing period.
func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver creates a Resolver.
// Panics if required dependencies are nil to fail fast during initialization.
func NewResolver(records subscription.RecordStore, usageStore usage.Store, catalog *tier.Catalog, opts ...ResolverOption) *Resolver {
	if records == nil {
		panic("entitlement: subscription.RecordStore is required")
	}
	if usageStore == nil {
		panic("entitlement: usage.Store is required")
	}
	if catalog == nil {
		panic("entitlement: tier.Catalog is required")
	}

	r := &Resolver{
		records: records,
		usage:   usageStore,
		catalog: catalog,
		log:     slog.Default(),
		timeout: defaultCallTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes the entitlement snapshot for a user.
//
// Expected conditions (no record, lapsed subscription, exhausted quota) are
// encoded in the returned value, never as errors. Store failures degrade the
// snapshot instead of failing the call, because a gating decision must
// always be renderable: an unreachable record store falls back to free-tier
// defaults, an unreachable usage store fails closed with CanUse=false
// everywhere. The returned error is non-nil only when the caller's context
// ended.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (*Entitlement, error) {
	now := r.now().UTC()

	rec, degraded := r.fetchRecord(ctx, userID)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Only an active, unexpired record grants its tier; everything else
	// reverts to free immediately, including paid periods that just ended.
	effectiveTier := tier.TierFree
	var activeRec *subscription.Record
	if rec != nil && !rec.IsLapsedAt(now) {
		effectiveTier = rec.TierID
		activeRec = rec
	}

	t := r.catalog.Get(effectiveTier)
	periodStart, periodEnd := billingPeriod(activeRec, now)

	ent := &Entitlement{
		UserID:      userID,
		TierID:      t.ID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Features:    make(map[usage.Feature]FeatureUsage, len(t.Limits)),
		ResolvedAt:  now,
	}
	if degraded {
		ent.Degraded = true
		ent.DegradedReason = DegradedSubscriptionUnavailable
	}

	for _, feature := range usage.Features() {
		limit, metered := t.Limit(feature)
		if !metered {
			continue
		}

		used, err := r.countInWindow(ctx, userID, feature, periodStart, periodEnd)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// Unknown usage fails closed: deny every feature rather than
			// guess, and let the caller present a retry.
			r.log.WarnContext(ctx, "usage store unavailable, failing closed",
				logger.Component("entitlement.resolver"),
				logger.UserID(userID),
				logger.Feature(feature.String()),
				logger.Error(err),
			)
			return r.failClosed(ent, t), nil
		}

		ent.Features[feature] = featureUsage(limit, used)
	}

	return ent, nil
}

// fetchRecord loads the subscription record, reporting degradation instead
// of failing. A missing record is a normal state, not degradation.
func (r *Resolver) fetchRecord(ctx context.Context, userID uuid.UUID) (*subscription.Record, bool) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec, err := r.records.Get(callCtx, userID)
	if err != nil {
		if errors.Is(err, subscription.ErrRecordNotFound) {
			return nil, false
		}
		if ctx.Err() != nil {
			return nil, false
		}
		r.log.WarnContext(ctx, "subscription record store unavailable, applying free-tier defaults",
			logger.Component("entitlement.resolver"),
			logger.UserID(userID),
			logger.Error(err),
		)
		return nil, true
	}
	return rec, false
}

func (r *Resolver) countInWindow(ctx context.Context, userID uuid.UUID, feature usage.Feature, from, to time.Time) (int64, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.usage.CountInWindow(callCtx, userID, feature, from, to)
}

// failClosed rewrites the snapshot so no feature is usable. Used counts are
// unknown, so they are reported as zero with CanUse forced off; the
// DenyDegraded reason keeps this from reading as an exhausted quota.
func (r *Resolver) failClosed(ent *Entitlement, t tier.Tier) *Entitlement {
	ent.Degraded = true
	ent.DegradedReason = DegradedUsageUnavailable
	for _, feature := range usage.Features() {
		limit, metered := t.Limit(feature)
		if !metered {
			continue
		}
		ent.Features[feature] = FeatureUsage{Limit: limit, Used: 0, Remaining: 0, CanUse: false}
	}
	return ent
}
