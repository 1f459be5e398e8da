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
	"github.com/lunaria/entitlement/pkg/usage"
)

type spyInvalidator struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (s *spyInvalidator) Invalidate(userID uuid.UUID) {
	s.mu.Lock()
	s.calls = append(s.calls, userID)
	s.mu.Unlock()
}

func (s *spyInvalidator) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestRecorder_Record(t *testing.T) {
	t.Parallel()

	t.Run("appends event and invalidates cache", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemStore()
		inv := &spyInvalidator{}
		userID := uuid.New()

		rec := entitlement.NewRecorder(store,
			entitlement.WithInvalidator(inv),
			entitlement.WithRecorderClock(fixedClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))),
		)

		err := rec.Record(context.Background(), userID, usage.FeatureNumerology)

		require.NoError(t, err)
		assert.Equal(t, 1, store.Len())
		assert.Equal(t, 1, inv.count())

		events := store.Events()
		require.Len(t, events, 1)
		assert.Equal(t, userID, events[0].UserID)
		assert.Equal(t, usage.FeatureNumerology, events[0].Feature)
		assert.NotEqual(t, uuid.Nil, events[0].ID)
	})

	t.Run("duplicate idempotency key is a no-op success", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemStore()
		inv := &spyInvalidator{}
		userID := uuid.New()

		rec := entitlement.NewRecorder(store, entitlement.WithInvalidator(inv))

		require.NoError(t, rec.Record(context.Background(), userID, usage.FeatureLoveMatch,
			entitlement.WithIdempotencyKey("req-1")))
		require.NoError(t, rec.Record(context.Background(), userID, usage.FeatureLoveMatch,
			entitlement.WithIdempotencyKey("req-1")))

		assert.Equal(t, 1, store.Len())
		// Only the stored write invalidates; the replay changed nothing.
		assert.Equal(t, 1, inv.count())
	})

	t.Run("same key for different features stores both", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemStore()
		userID := uuid.New()
		rec := entitlement.NewRecorder(store)

		require.NoError(t, rec.Record(context.Background(), userID, usage.FeatureLoveMatch,
			entitlement.WithIdempotencyKey("req-1")))
		require.NoError(t, rec.Record(context.Background(), userID, usage.FeatureNumerology,
			entitlement.WithIdempotencyKey("req-1")))

		assert.Equal(t, 2, store.Len())
	})

	t.Run("store failure returns ErrRecordingFailed", func(t *testing.T) {
		t.Parallel()

		inv := &spyInvalidator{}
		rec := entitlement.NewRecorder(failingUsageStore{}, entitlement.WithInvalidator(inv))

		err := rec.Record(context.Background(), uuid.New(), usage.FeatureNumerology)

		require.Error(t, err)
		assert.ErrorIs(t, err, entitlement.ErrRecordingFailed)
		assert.Equal(t, 0, inv.count())
	})

	t.Run("invalid feature rejected", func(t *testing.T) {
		t.Parallel()

		rec := entitlement.NewRecorder(usage.NewMemStore())

		err := rec.Record(context.Background(), uuid.New(), usage.Feature("tarot"))

		assert.ErrorIs(t, err, entitlement.ErrInvalidFeature)
	})

	t.Run("metadata attached to event", func(t *testing.T) {
		t.Parallel()

		store := usage.NewMemStore()
		rec := entitlement.NewRecorder(store)

		require.NoError(t, rec.Record(context.Background(), uuid.New(), usage.FeatureTrustAssessment,
			entitlement.WithMetadata(map[string]string{"source": "ios"})))

		events := store.Events()
		require.Len(t, events, 1)
		assert.Equal(t, "ios", events[0].Metadata["source"])
	})
}
