package entitlement

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lunaria/entitlement/pkg/cache"
	"github.com/lunaria/entitlement/pkg/logger"
)

const (
	defaultCacheTTL      = 5 * time.Second
	defaultCacheCapacity = 1024
	defaultFetchTimeout  = 10 * time.Second
)

// EntitlementResolver abstracts the resolver so the cache can be tested with
// fakes. *Resolver satisfies it.
type EntitlementResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*Entitlement, error)
}

// Cache is a staleness-aware, single-flight cache over the resolver.
//
// Each user's entry moves through Empty -> Loading -> Fresh -> Stale:
// a Fresh entry turns Stale after the TTL, or immediately when Invalidate is
// called (forced invalidation wins over TTL). While Loading, concurrent Gets
// for the same user share the one in-flight resolve instead of issuing
// duplicates; at most one resolver fetch per user is in flight at a time.
type Cache struct {
	resolver     EntitlementResolver
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	log          *slog.Logger

	mu       sync.Mutex
	entries  *cache.LRU[uuid.UUID, cachedEntitlement]
	inflight map[uuid.UUID]*flight
}

type cachedEntitlement struct {
	ent       *Entitlement
	fetchedAt time.Time
}

// flight is one in-flight resolve shared by all concurrent callers.
// Waiters read ent/err only after done is closed.
type flight struct {
	done        chan struct{}
	ent         *Entitlement
	err         error
	invalidated bool // guarded by Cache.mu; suppresses storing a stale result
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets how long a resolved entitlement stays fresh. Usage is
// user-driven and bursty, so the default is a few seconds.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCapacity bounds the number of users with cached entries.
func WithCapacity(capacity int) CacheOption {
	return func(c *Cache) {
		if capacity > 0 {
			c.entries = cache.NewLRU[uuid.UUID, cachedEntitlement](capacity)
		}
	}
}

// WithFetchTimeout bounds a shared resolve flight. The flight runs on a
// detached context so one caller leaving does not cancel it for the rest.
func WithFetchTimeout(timeout time.Duration) CacheOption {
	return func(c *Cache) {
		if timeout > 0 {
			c.fetchTimeout = timeout
		}
	}
}

// WithCacheClock overrides the time source for tests.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCacheLogger sets the logger for invalidation events.
func WithCacheLogger(log *slog.Logger) CacheOption {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCache creates a Cache over the given resolver.
// Panics if resolver is nil to fail fast during initialization.
func NewCache(resolver EntitlementResolver, opts ...CacheOption) *Cache {
	if resolver == nil {
		panic("entitlement: resolver is required")
	}

	c := &Cache{
		resolver:     resolver,
		ttl:          defaultCacheTTL,
		fetchTimeout: defaultFetchTimeout,
		now:          time.Now,
		log:          slog.Default(),
		entries:      cache.NewLRU[uuid.UUID, cachedEntitlement](defaultCacheCapacity),
		inflight:     make(map[uuid.UUID]*flight),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached entitlement when fresh, otherwise fetches through
// the resolver. Concurrent callers for the same user share one fetch; a
// waiter whose context ends stops waiting without cancelling the flight for
// the others.
func (c *Cache) Get(ctx context.Context, userID uuid.UUID) (*Entitlement, error) {
	c.mu.Lock()

	if e, ok := c.entries.Get(userID); ok && c.now().Sub(e.fetchedAt) < c.ttl {
		c.mu.Unlock()
		return e.ent, nil
	}

	if f, ok := c.inflight[userID]; ok {
		c.mu.Unlock()
		return awaitFlight(ctx, f)
	}

	f := &flight{done: make(chan struct{})}
	c.inflight[userID] = f
	c.mu.Unlock()

	go c.fetch(userID, f)
	return awaitFlight(ctx, f)
}

// Invalidate forces the next Get for the user to re-resolve. Called after
// every successful usage write so remaining counts never lag a recorded use.
func (c *Cache) Invalidate(userID uuid.UUID) {
	c.mu.Lock()
	c.entries.Delete(userID)
	if f, ok := c.inflight[userID]; ok {
		// The in-flight snapshot may predate whatever invalidated it.
		// It is still returned to its waiters, but is not stored.
		f.invalidated = true
	}
	c.mu.Unlock()
}

// InvalidateOnRecordChange discards the user's entry because the underlying
// subscription record changed (webhook sync). Unconditional: TTL is ignored.
func (c *Cache) InvalidateOnRecordChange(userID uuid.UUID) {
	c.Invalidate(userID)
	c.log.Debug("entitlement invalidated on subscription record change",
		logger.Component("entitlement.cache"),
		logger.UserID(userID),
	)
}

func (c *Cache) fetch(userID uuid.UUID, f *flight) {
	// Detached from any caller's context: late joiners must not lose the
	// result because the initiating caller navigated away.
	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()

	ent, err := c.resolver.Resolve(ctx, userID)

	c.mu.Lock()
	delete(c.inflight, userID)
	// Degraded snapshots are served to the waiting callers but never
	// cached, so the next request retries the stores immediately.
	if err == nil && ent != nil && !ent.Degraded && !f.invalidated {
		c.entries.Set(userID, cachedEntitlement{ent: ent, fetchedAt: c.now()})
	}
	c.mu.Unlock()

	f.ent, f.err = ent, err
	close(f.done)
}

func awaitFlight(ctx context.Context, f *flight) (*Entitlement, error) {
	select {
	case <-f.done:
		return f.ent, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
