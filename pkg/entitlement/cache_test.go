package entitlement_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunaria/entitlement/pkg/entitlement"
	"github.com/lunaria/entitlement/pkg/tier"
	"github.com/lunaria/entitlement/pkg/usage"
)

// fakeResolver counts Resolve calls and can block until released.
type fakeResolver struct {
	mu      sync.Mutex
	calls   int
	release chan struct{} // nil means resolve immediately
	ent     *entitlement.Entitlement
}

func (f *fakeResolver) Resolve(ctx context.Context, userID uuid.UUID) (*entitlement.Entitlement, error) {
	f.mu.Lock()
	f.calls++
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ent := *f.ent
	ent.UserID = userID
	return &ent, nil
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func healthySnapshot() *entitlement.Entitlement {
	return &entitlement.Entitlement{
		TierID: tier.TierFree,
		Features: map[usage.Feature]entitlement.FeatureUsage{
			usage.FeatureNumerology: {Limit: 3, Remaining: 3, CanUse: true},
		},
	}
}

// advancingClock is a manually stepped time source.
type advancingClock struct {
	mu sync.Mutex
	at time.Time
}

func newAdvancingClock(at time.Time) *advancingClock {
	return &advancingClock{at: at}
}

func (c *advancingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *advancingClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.at = c.at.Add(d)
	c.mu.Unlock()
}

func TestCache_Get_FreshHitSkipsResolver(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{ent: healthySnapshot()}
	c := entitlement.NewCache(resolver, entitlement.WithTTL(time.Minute))
	userID := uuid.New()

	first, err := c.Get(context.Background(), userID)
	require.NoError(t, err)
	second, err := c.Get(context.Background(), userID)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, resolver.callCount())
}

func TestCache_Get_TTLExpiryRefetches(t *testing.T) {
	t.Parallel()

	clock := newAdvancingClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	resolver := &fakeResolver{ent: healthySnapshot()}
	c := entitlement.NewCache(resolver,
		entitlement.WithTTL(5*time.Second),
		entitlement.WithCacheClock(clock.Now),
	)
	userID := uuid.New()

	_, err := c.Get(context.Background(), userID)
	require.NoError(t, err)

	clock.Advance(4 * time.Second)
	_, err = c.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.callCount(), "still fresh")

	clock.Advance(2 * time.Second)
	_, err = c.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, resolver.callCount(), "stale after TTL")
}

func TestCache_Get_SingleFlight(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	resolver := &fakeResolver{ent: healthySnapshot(), release: release}
	c := entitlement.NewCache(resolver)
	userID := uuid.New()

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]*entitlement.Entitlement, waiters)
	for i := range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ent, err := c.Get(context.Background(), userID)
			assert.NoError(t, err)
			results[i] = ent
		}()
	}

	// Give the waiters time to pile onto the one flight, then release it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, resolver.callCount())
	for _, ent := range results {
		assert.Same(t, results[0], ent)
	}
}

func TestCache_Invalidate_ForcesRefetch(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{ent: healthySnapshot()}
	c := entitlement.NewCache(resolver, entitlement.WithTTL(time.Hour))
	userID := uuid.New()

	_, err := c.Get(context.Background(), userID)
	require.NoError(t, err)

	c.Invalidate(userID)

	_, err = c.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, resolver.callCount())
}

func TestCache_Invalidate_InFlightResultNotStored(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	resolver := &fakeResolver{ent: healthySnapshot(), release: release}
	c := entitlement.NewCache(resolver, entitlement.WithTTL(time.Hour))
	userID := uuid.New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := c.Get(context.Background(), userID)
		assert.NoError(t, err)
	}()

	// Invalidate while the resolve is still in flight; its result must be
	// delivered to the waiter but not cached.
	time.Sleep(50 * time.Millisecond)
	c.Invalidate(userID)
	close(release)
	<-done

	_, err := c.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, resolver.callCount())
}

func TestCache_Get_DegradedNotCached(t *testing.T) {
	t.Parallel()

	degraded := healthySnapshot()
	degraded.Degraded = true
	degraded.DegradedReason = entitlement.DegradedSubscriptionUnavailable

	resolver := &fakeResolver{ent: degraded}
	c := entitlement.NewCache(resolver, entitlement.WithTTL(time.Hour))
	userID := uuid.New()

	first, err := c.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, first.Degraded)

	_, err = c.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, resolver.callCount(), "degraded snapshots are re-resolved every time")
}

func TestCache_Get_WaiterContextCancelDoesNotKillFlight(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	resolver := &fakeResolver{ent: healthySnapshot(), release: release}
	c := entitlement.NewCache(resolver, entitlement.WithTTL(time.Hour))
	userID := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, userID)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// The flight keeps running on its detached context and its result is
	// cached for the next caller.
	close(release)

	require.Eventually(t, func() bool {
		ent, err := c.Get(context.Background(), userID)
		return err == nil && ent != nil
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, resolver.callCount())
}
