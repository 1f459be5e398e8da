// Package usage provides durable, append-only storage for feature usage
// events. Every approved gated action produces exactly one event, and the
// authoritative usage count for a billing period is always a query over this
// log, never a client-held counter.
//
// Key concepts:
//
//   - Feature: a fixed enum of gated app features (numerology, love match,
//     trust assessment)
//   - Event: an immutable record that one unit of a feature was consumed
//   - Store: the persistence interface with window counting and idempotent
//     appends
//
// Three backends are provided: PGStore (PostgreSQL), RedisStore (Redis
// sorted sets) and MemStore (in-memory, for tests and local development).
// All of them enforce idempotency-key uniqueness in the store itself, so
// retried or racing requests with the same key produce a single event even
// across processes.
//
// Basic usage:
//
//	store := usage.NewPGStore(pool)
//
//	err := store.Append(ctx, usage.Event{
//	    UserID:         userID,
//	    Feature:        usage.FeatureNumerology,
//	    Timestamp:      time.Now().UTC(),
//	    IdempotencyKey: requestID,
//	})
//	if errors.Is(err, usage.ErrDuplicateEvent) {
//	    // already recorded, treat as success
//	}
//
//	used, err := store.CountInWindow(ctx, userID, usage.FeatureNumerology, periodStart, periodEnd)
package usage
