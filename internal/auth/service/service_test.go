package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	authredis "github.com/aussiebroadwan/authcore/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// One key for the whole package; generating RSA keys is slow.
var testKeySource = &jwtx.EphemeralKeySource{Bits: 2048}

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fixture struct {
	store      *sqlite.Store
	refresh    store.RefreshTokens
	hasher     *cryptox.Hasher
	codec      *TokenCodec
	sessions   *SessionManager
	identities *IdentityService
	tenants    *TenantService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	keys    jwtx.KeySource
	refresh func(t *testing.T, s store.Store) store.RefreshTokens
	timeout time.Duration
}

func withKeySource(src jwtx.KeySource) fixtureOption {
	return func(c *fixtureConfig) { c.keys = src }
}

func withRedisRefresh() fixtureOption {
	return func(c *fixtureConfig) {
		c.refresh = func(t *testing.T, _ store.Store) store.RefreshTokens {
			mr := miniredis.RunT(t)
			client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return authredis.NewRefreshTokens(client, "")
		}
	}
}

func withRefresh(r store.RefreshTokens, timeout time.Duration) fixtureOption {
	return func(c *fixtureConfig) {
		c.refresh = func(*testing.T, store.Store) store.RefreshTokens { return r }
		c.timeout = timeout
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	cfg := fixtureConfig{
		keys: testKeySource,
		refresh: func(_ *testing.T, s store.Store) store.RefreshTokens {
			return s.RefreshTokens()
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	codec, err := NewTokenCodec(jwtx.NewKeyManager(cfg.keys), TokenConfig{
		Issuer:        DefaultIssuer,
		RefreshSecret: testSecret,
	})
	require.NoError(t, err)

	refresh := cfg.refresh(t, s)
	hasher := cryptox.NewHasher("pepper")

	return &fixture{
		store:   s,
		refresh: refresh,
		hasher:  hasher,
		codec:   codec,
		sessions: &SessionManager{
			Store: s, Records: refresh, Codec: codec, Hasher: hasher, Timeout: cfg.timeout,
		},
		identities: &IdentityService{
			Store: s, Refresh: refresh, Hasher: hasher, Timeout: cfg.timeout,
		},
		tenants: &TenantService{Store: s, Timeout: cfg.timeout},
	}
}

func (f *fixture) register(t *testing.T, email string) Session {
	t.Helper()
	sess, err := f.sessions.Register(t.Context(), RegisterInput{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  "password1",
	})
	require.NoError(t, err)
	return sess
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// blockingRefresh never answers before its context gives up.
type blockingRefresh struct{}

func (blockingRefresh) Create(ctx context.Context, _ int64, _ time.Time) (domain.RefreshRecord, error) {
	<-ctx.Done()
	return domain.RefreshRecord{}, ctx.Err()
}

func (blockingRefresh) FindByID(ctx context.Context, _ int64) (domain.RefreshRecord, error) {
	<-ctx.Done()
	return domain.RefreshRecord{}, ctx.Err()
}

func (blockingRefresh) DeleteByID(ctx context.Context, _ int64) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingRefresh) Rotate(ctx context.Context, _, _ int64, _ time.Time) (domain.RefreshRecord, error) {
	<-ctx.Done()
	return domain.RefreshRecord{}, ctx.Err()
}

func (blockingRefresh) DeleteByIdentity(ctx context.Context, _ int64) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (blockingRefresh) DeleteExpired(ctx context.Context, _ time.Time) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestStoreErr(t *testing.T) {
	require.NoError(t, storeErr(nil))
	require.ErrorIs(t, storeErr(context.DeadlineExceeded), ErrStoreUnavailable)
	require.ErrorIs(t, storeErr(&net.OpError{Op: "dial", Err: errors.New("refused")}), ErrStoreUnavailable)

	other := errors.New("boom")
	require.Equal(t, other, storeErr(other))
	require.NotErrorIs(t, storeErr(context.Canceled), ErrStoreUnavailable)
}
