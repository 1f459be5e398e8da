package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Events live in a per-(user, feature) sorted set scored by the event's
// unix-nano timestamp, which makes half-open window counts a single ZCOUNT.
// Idempotency keys are reserved with SETNX before the event is added.
const defaultIdempotencyKeyTTL = 45 * 24 * time.Hour // outlives any billing period

// RedisStore is a Redis-backed Store for deployments that keep usage
// counters out of the primary database.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	keyTTL    time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix sets the prefix for all keys written by the store.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// WithIdempotencyKeyTTL sets how long idempotency-key reservations are kept.
// The TTL must outlive the longest billing period for deduplication to hold
// across retries within that period.
func WithIdempotencyKeyTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.keyTTL = ttl
		}
	}
}

// NewRedisStore creates a Store backed by the given Redis client.
// Panics if client is nil to fail fast during initialization.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	if client == nil {
		panic("usage: redis client is required")
	}

	s := &RedisStore{
		client:    client,
		keyPrefix: "usage",
		keyTTL:    defaultIdempotencyKeyTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CountInWindow returns the number of events for (userID, feature) in [from, to).
func (s *RedisStore) CountInWindow(ctx context.Context, userID uuid.UUID, feature Feature, from, to time.Time) (int64, error) {
	if !feature.Valid() {
		return 0, ErrInvalidFeature
	}

	// ZCOUNT bounds are inclusive by default; the "(" prefix excludes the
	// upper bound to preserve [from, to) semantics.
	min := strconv.FormatInt(from.UTC().UnixNano(), 10)
	max := "(" + strconv.FormatInt(to.UTC().UnixNano(), 10)

	count, err := s.client.ZCount(ctx, s.eventsKey(userID, feature), min, max).Result()
	if err != nil {
		return 0, errors.Join(ErrFailedToCountEvents, err)
	}

	return count, nil
}

// Append stores a single event.
func (s *RedisStore) Append(ctx context.Context, event Event) error {
	if err := validateEvent(&event); err != nil {
		return err
	}

	// SETNX is the atomic uniqueness check: two processes racing on the
	// same key get exactly one reservation between them.
	reservation := ""
	if event.IdempotencyKey != "" {
		reservation = s.idempotencyKey(event.UserID, event.Feature, event.IdempotencyKey)
		set, err := s.client.SetNX(ctx, reservation, event.ID.String(), s.keyTTL).Result()
		if err != nil {
			return errors.Join(ErrFailedToAppendEvent, err)
		}
		if !set {
			return ErrDuplicateEvent
		}
	}

	err := s.client.ZAdd(ctx, s.eventsKey(event.UserID, event.Feature), redis.Z{
		Score:  float64(event.Timestamp.UTC().UnixNano()),
		Member: event.ID.String(),
	}).Err()
	if err != nil {
		// The reservation must not outlive a failed write: a retry of the
		// same request has to append the event, not read as a duplicate of
		// one that was never stored.
		if reservation != "" {
			if delErr := s.client.Del(ctx, reservation).Err(); delErr != nil {
				return errors.Join(ErrFailedToAppendEvent, err, delErr)
			}
		}
		return errors.Join(ErrFailedToAppendEvent, err)
	}

	return nil
}

func (s *RedisStore) eventsKey(userID uuid.UUID, feature Feature) string {
	return fmt.Sprintf("%s:events:%s:%s", s.keyPrefix, userID, feature)
}

func (s *RedisStore) idempotencyKey(userID uuid.UUID, feature Feature, key string) string {
	return fmt.Sprintf("%s:idem:%s:%s:%s", s.keyPrefix, userID, feature, key)
}
