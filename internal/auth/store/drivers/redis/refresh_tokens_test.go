package redis_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	authredis "github.com/aussiebroadwan/authcore/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/authcore/internal/auth/store/storetest"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRefreshTokens(t *testing.T) (*authredis.RefreshTokens, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return authredis.NewRefreshTokens(client, ""), mr
}

func TestRefreshTokens(t *testing.T) {
	var ids atomic.Int64
	storetest.RunRefreshTokens(t, func(t *testing.T) storetest.RefreshHarness {
		r, _ := newRefreshTokens(t)
		return storetest.RefreshHarness{
			Refresh: r,
			NewIdentity: func(t *testing.T) int64 {
				return ids.Add(1)
			},
		}
	})
}

func TestRecordsExpireWithTheirToken(t *testing.T) {
	r, mr := newRefreshTokens(t)
	ctx := t.Context()

	rec, err := r.Create(ctx, 7, time.Now().Add(time.Hour))
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = r.FindByID(ctx, rec.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = r.Rotate(ctx, rec.ID, 7, time.Now().Add(time.Hour))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteKeepsIndexesConsistent(t *testing.T) {
	r, mr := newRefreshTokens(t)
	ctx := t.Context()

	rec, err := r.Create(ctx, 3, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, r.DeleteByID(ctx, rec.ID))

	n, err := r.DeleteByIdentity(ctx, 3)
	require.NoError(t, err)
	require.Zero(t, n)

	members, err := mr.ZMembers(authredis.DefaultPrefix + ":expiry")
	if err == nil {
		require.Empty(t, members)
	}

	n, err = r.DeleteExpired(ctx, time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestPing(t *testing.T) {
	r, mr := newRefreshTokens(t)
	require.NoError(t, r.Ping(t.Context()))

	mr.Close()
	require.Error(t, r.Ping(t.Context()))
}
