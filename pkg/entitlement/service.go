package entitlement

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lunaria/entitlement/pkg/tier"
	"github.com/lunaria/entitlement/pkg/usage"
)

// Service is the consumer-facing API for gated features. Front-ends call
// CheckAccess to render gates and UseFeature to consume one unit of quota.
// User IDs are explicit parameters rather than ambient state so the same
// service instance serves any number of users.
type Service interface {
	// CheckAccess reports whether the user may use the feature right now,
	// and how many uses remain this billing period.
	CheckAccess(ctx context.Context, userID uuid.UUID, feature usage.Feature) (Decision, error)

	// UseFeature checks access and, on approval, records one use. The
	// returned decision reflects the state after the recorded use.
	UseFeature(ctx context.Context, userID uuid.UUID, feature usage.Feature, opts ...RecordOption) (Decision, error)

	// GetEntitlement returns the full entitlement snapshot, for plan and
	// usage screens.
	GetEntitlement(ctx context.Context, userID uuid.UUID) (*Entitlement, error)
}

type service struct {
	cache    *Cache
	recorder *Recorder
	log      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*service)

// WithServiceLogger sets the service logger.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates the consumer-facing Service.
// Panics if required dependencies are nil to fail fast during initialization.
func NewService(cache *Cache, recorder *Recorder, opts ...ServiceOption) Service {
	if cache == nil {
		panic("entitlement: Cache is required")
	}
	if recorder == nil {
		panic("entitlement: Recorder is required")
	}

	s := &service{
		cache:    cache,
		recorder: recorder,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckAccess resolves the (cached) entitlement and runs the access gate.
func (s *service) CheckAccess(ctx context.Context, userID uuid.UUID, feature usage.Feature) (Decision, error) {
	if !feature.Valid() {
		return Decision{}, ErrInvalidFeature
	}

	ent, err := s.cache.Get(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	return Check(ent, feature), nil
}

// UseFeature is check-then-record. The two steps are deliberately not
// atomic: the check is local and the record is a network write, and holding
// a lock across that round trip is worse than the alternative. Concurrent
// approved actions can therefore overshoot the limit by at most the number
// of requests in flight — an accepted tradeoff of availability over strict
// quota exactness.
func (s *service) UseFeature(ctx context.Context, userID uuid.UUID, feature usage.Feature, opts ...RecordOption) (Decision, error) {
	if !feature.Valid() {
		return Decision{}, ErrInvalidFeature
	}

	ent, err := s.cache.Get(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	decision := Check(ent, feature)
	if !decision.Allowed {
		return decision, nil
	}

	if err := s.recorder.Record(ctx, userID, feature, opts...); err != nil {
		// The gated action was approved; recording is bookkeeping. The
		// recorder already logged the loss, the caller surfaces it without
		// blocking the user.
		return decision, err
	}

	return s.postUseDecision(ctx, userID, feature, decision), nil
}

// GetEntitlement returns the full snapshot for the user.
func (s *service) GetEntitlement(ctx context.Context, userID uuid.UUID) (*Entitlement, error) {
	return s.cache.Get(ctx, userID)
}

// postUseDecision re-resolves after the cache invalidation so Remaining
// reflects the recorded use. When the re-resolve is unavailable or
// degraded, the pre-use remaining is decremented locally as a best effort.
func (s *service) postUseDecision(ctx context.Context, userID uuid.UUID, feature usage.Feature, pre Decision) Decision {
	ent, err := s.cache.Get(ctx, userID)
	if err == nil && ent != nil && !ent.Degraded {
		if fu, ok := ent.Usage(feature); ok {
			return Decision{Allowed: true, Remaining: fu.Remaining}
		}
	}

	if pre.Remaining == tier.Unlimited {
		return Decision{Allowed: true, Remaining: tier.Unlimited}
	}
	return Decision{Allowed: true, Remaining: max(0, pre.Remaining-1)}
}
