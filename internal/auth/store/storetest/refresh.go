// Package storetest holds behaviour tests every store driver must pass.
package storetest

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/stretchr/testify/require"
)

// RefreshHarness is what a driver hands to RunRefreshTokens.
type RefreshHarness struct {
	Refresh store.RefreshTokens

	// NewIdentity returns an identity id that records may be bound to.
	NewIdentity func(t *testing.T) int64
}

// RunRefreshTokens exercises the refresh record contract.
func RunRefreshTokens(t *testing.T, newHarness func(t *testing.T) RefreshHarness) {
	t.Run("create find delete", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()
		owner := h.NewIdentity(t)
		exp := time.Now().Add(time.Hour).Truncate(time.Second)

		rec, err := h.Refresh.Create(ctx, owner, exp)
		require.NoError(t, err)
		require.Positive(t, rec.ID)
		require.Equal(t, owner, rec.IdentityID)
		require.True(t, rec.ExpiresAt.Equal(exp))

		got, err := h.Refresh.FindByID(ctx, rec.ID)
		require.NoError(t, err)
		require.Equal(t, rec.ID, got.ID)
		require.Equal(t, owner, got.IdentityID)
		require.True(t, got.ExpiresAt.Equal(exp))

		require.NoError(t, h.Refresh.DeleteByID(ctx, rec.ID))
		_, err = h.Refresh.FindByID(ctx, rec.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		// Idempotent
		require.NoError(t, h.Refresh.DeleteByID(ctx, rec.ID))
		require.NoError(t, h.Refresh.DeleteByID(ctx, 987654321))
	})

	t.Run("ids are unique", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()
		owner := h.NewIdentity(t)

		seen := make(map[int64]bool)
		for range 5 {
			rec, err := h.Refresh.Create(ctx, owner, time.Now().Add(time.Hour))
			require.NoError(t, err)
			require.False(t, seen[rec.ID])
			seen[rec.ID] = true
			require.NoError(t, h.Refresh.DeleteByID(ctx, rec.ID))
		}
	})

	t.Run("rotate replaces the record", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()
		owner := h.NewIdentity(t)

		old, err := h.Refresh.Create(ctx, owner, time.Now().Add(time.Hour))
		require.NoError(t, err)

		next, err := h.Refresh.Rotate(ctx, old.ID, owner, time.Now().Add(2*time.Hour))
		require.NoError(t, err)
		require.NotEqual(t, old.ID, next.ID)
		require.Equal(t, owner, next.IdentityID)

		_, err = h.Refresh.FindByID(ctx, old.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = h.Refresh.FindByID(ctx, next.ID)
		require.NoError(t, err)

		// Second rotation of the same old id fails and creates nothing.
		_, err = h.Refresh.Rotate(ctx, old.ID, owner, time.Now().Add(2*time.Hour))
		require.ErrorIs(t, err, store.ErrNotFound)

		n, err := h.Refresh.DeleteByIdentity(ctx, owner)
		require.NoError(t, err)
		require.Equal(t, int64(1), n, "only the rotated record exists")
	})

	t.Run("rotate rejects another owner", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()
		owner := h.NewIdentity(t)
		intruder := h.NewIdentity(t)

		rec, err := h.Refresh.Create(ctx, owner, time.Now().Add(time.Hour))
		require.NoError(t, err)

		_, err = h.Refresh.Rotate(ctx, rec.ID, intruder, time.Now().Add(time.Hour))
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = h.Refresh.FindByID(ctx, rec.ID)
		require.NoError(t, err, "record survives a rejected rotation")

		n, err := h.Refresh.DeleteByIdentity(ctx, intruder)
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("concurrent rotations have one winner", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()
		owner := h.NewIdentity(t)

		rec, err := h.Refresh.Create(ctx, owner, time.Now().Add(time.Hour))
		require.NoError(t, err)

		const workers = 8
		var (
			wg       sync.WaitGroup
			wins     atomic.Int32
			notFound atomic.Int32
		)
		start := make(chan struct{})
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := h.Refresh.Rotate(ctx, rec.ID, owner, time.Now().Add(time.Hour))
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, store.ErrNotFound):
					notFound.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Equal(t, int32(1), wins.Load())
		require.Equal(t, int32(workers-1), notFound.Load())

		n, err := h.Refresh.DeleteByIdentity(ctx, owner)
		require.NoError(t, err)
		require.Equal(t, int64(1), n, "exactly one live record after the race")
	})

	t.Run("delete by identity", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()
		a := h.NewIdentity(t)
		b := h.NewIdentity(t)

		for range 3 {
			_, err := h.Refresh.Create(ctx, a, time.Now().Add(time.Hour))
			require.NoError(t, err)
		}
		keep, err := h.Refresh.Create(ctx, b, time.Now().Add(time.Hour))
		require.NoError(t, err)

		n, err := h.Refresh.DeleteByIdentity(ctx, a)
		require.NoError(t, err)
		require.Equal(t, int64(3), n)

		_, err = h.Refresh.FindByID(ctx, keep.ID)
		require.NoError(t, err)
	})

	t.Run("delete expired", func(t *testing.T) {
		h := newHarness(t)
		ctx := t.Context()
		owner := h.NewIdentity(t)
		now := time.Now()

		stale, err := h.Refresh.Create(ctx, owner, now.Add(time.Hour))
		require.NoError(t, err)
		live, err := h.Refresh.Create(ctx, owner, now.Add(3*time.Hour))
		require.NoError(t, err)

		n, err := h.Refresh.DeleteExpired(ctx, now.Add(2*time.Hour))
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		_, err = h.Refresh.FindByID(ctx, stale.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = h.Refresh.FindByID(ctx, live.ID)
		require.NoError(t, err)
	})
}
