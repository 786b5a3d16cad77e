package service

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	sess, err := f.sessions.Register(ctx, RegisterInput{
		FirstName: "Ann", LastName: "Smith", Email: "  A@X.com ", Password: "password1",
	})
	require.NoError(t, err)
	require.Positive(t, sess.Identity.ID)
	require.Equal(t, domain.RoleCustomer, sess.Identity.Role)
	require.Equal(t, "a@x.com", sess.Identity.Email)
	require.Equal(t, "Bearer", sess.Tokens.TokenType)
	require.Equal(t, int64(3600), sess.Tokens.ExpiresIn)

	stored, err := f.store.Identities().GetIdentityByID(ctx, sess.Identity.ID)
	require.NoError(t, err)
	require.NotEqual(t, "password1", stored.PasswordHash)
	require.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))

	_, err = f.sessions.Register(ctx, RegisterInput{
		FirstName: "Ann", LastName: "Again", Email: "a@x.com", Password: "password2",
	})
	require.ErrorIs(t, err, ErrConflict)

	_, err = f.store.Identities().GetIdentityByEmail(ctx, "a@x.com")
	require.NoError(t, err, "exactly one identity remains")

	claims, err := f.codec.VerifyRefresh(sess.Tokens.RefreshToken)
	require.NoError(t, err)
	recordID, err := claims.RecordID()
	require.NoError(t, err)
	rec, err := f.refresh.FindByID(ctx, recordID)
	require.NoError(t, err)
	require.Equal(t, sess.Identity.ID, rec.IdentityID)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	reg := f.register(t, "a@x.com")

	sess, err := f.sessions.Login(ctx, "A@x.com", "password1")
	require.NoError(t, err)

	claims, err := f.codec.VerifyAccess(sess.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, domain.FormatSubject(reg.Identity.ID), claims.Subject)
	require.Equal(t, "customer", claims.Role)

	_, err = f.sessions.Login(ctx, "a@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.sessions.Login(ctx, "nobody@x.com", "password1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	legacy, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)
	identity, err := f.store.Identities().CreateIdentity(ctx, domain.Identity{
		FirstName: "Old", LastName: "Timer", Email: "old@x.com",
		PasswordHash: string(legacy), Role: domain.RoleManager,
	})
	require.NoError(t, err)

	_, err = f.sessions.Login(ctx, "old@x.com", "password1")
	require.NoError(t, err)

	stored, err := f.store.Identities().GetIdentityByID(ctx, identity.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))

	_, err = f.sessions.Login(ctx, "old@x.com", "password1")
	require.NoError(t, err, "the upgraded hash still verifies")
}

func TestRefreshIsSingleUse(t *testing.T) {
	for name, opts := range map[string][]fixtureOption{
		"sql":   nil,
		"redis": {withRedisRefresh()},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, opts...)
			ctx := t.Context()
			reg := f.register(t, "a@x.com")

			next, err := f.sessions.Refresh(ctx, reg.Tokens.RefreshToken)
			require.NoError(t, err)
			require.NotEqual(t, reg.Tokens.RefreshToken, next.Tokens.RefreshToken)

			claims, err := f.codec.VerifyAccess(next.Tokens.AccessToken)
			require.NoError(t, err)
			require.Equal(t, reg.Identity.Subject(), claims.Subject)

			_, err = f.sessions.Refresh(ctx, reg.Tokens.RefreshToken)
			require.ErrorIs(t, err, ErrInvalidToken)

			_, err = f.sessions.Refresh(ctx, next.Tokens.RefreshToken)
			require.NoError(t, err, "the rotated token is redeemable once")
		})
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "a@x.com")

	_, err := f.sessions.Refresh(t.Context(), reg.Tokens.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshPicksUpRoleChanges(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	reg := f.register(t, "a@x.com")

	admin := domain.RoleAdmin
	_, err := f.identities.Update(ctx, reg.Identity.ID, domain.IdentityPatch{Role: &admin})
	require.NoError(t, err)

	next, err := f.sessions.Refresh(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)
	claims, err := f.codec.VerifyAccess(next.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Role)
}

func TestRefreshAfterRecordDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	reg := f.register(t, "a@x.com")

	claims, err := f.codec.VerifyRefresh(reg.Tokens.RefreshToken)
	require.NoError(t, err)
	recordID, _ := claims.RecordID()
	require.NoError(t, f.refresh.DeleteByID(ctx, recordID))

	_, err = f.sessions.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshForDeletedIdentity(t *testing.T) {
	f := newFixture(t, withRedisRefresh())
	ctx := t.Context()
	reg := f.register(t, "a@x.com")

	require.NoError(t, f.store.Identities().DeleteIdentity(ctx, reg.Identity.ID))

	_, err := f.sessions.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrIdentityNotFound)
}

func TestConcurrentRefreshHasOneWinner(t *testing.T) {
	for name, opts := range map[string][]fixtureOption{
		"sql":   nil,
		"redis": {withRedisRefresh()},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, opts...)
			ctx := t.Context()
			reg := f.register(t, "a@x.com")

			const workers = 8
			var (
				wg      sync.WaitGroup
				wins    atomic.Int32
				invalid atomic.Int32
			)
			start := make(chan struct{})
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, err := f.sessions.Refresh(ctx, reg.Tokens.RefreshToken)
					switch {
					case err == nil:
						wins.Add(1)
					case errors.Is(err, ErrInvalidToken):
						invalid.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			require.Equal(t, int32(1), wins.Load())
			require.Equal(t, int32(workers-1), invalid.Load())

			n, err := f.refresh.DeleteByIdentity(ctx, reg.Identity.ID)
			require.NoError(t, err)
			require.Equal(t, int64(1), n)
		})
	}
}

func TestRefreshKeepsSessionWhenKeyUnavailable(t *testing.T) {
	f := newFixture(t, withKeySource(jwtx.FileKeySource{Path: filepath.Join(t.TempDir(), "missing.pem")}))
	ctx := t.Context()

	identity, err := f.store.Identities().CreateIdentity(ctx, domain.Identity{
		FirstName: "Ann", LastName: "Smith", Email: "a@x.com", PasswordHash: "h", Role: domain.RoleCustomer,
	})
	require.NoError(t, err)
	rec, err := f.refresh.Create(ctx, identity.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	tok, err := f.codec.IssueRefreshToken(identity.Subject(), identity.Role, rec.ID)
	require.NoError(t, err)

	_, err = f.sessions.Refresh(ctx, tok)
	require.ErrorIs(t, err, ErrKeySourceUnavailable)

	_, err = f.refresh.FindByID(ctx, rec.ID)
	require.NoError(t, err, "the old record survives")
}

func TestRegisterDiscardsRecordWhenKeyUnavailable(t *testing.T) {
	f := newFixture(t, withKeySource(jwtx.FileKeySource{Path: filepath.Join(t.TempDir(), "missing.pem")}))
	ctx := t.Context()

	_, err := f.sessions.Register(ctx, RegisterInput{
		FirstName: "Ann", LastName: "Smith", Email: "a@x.com", Password: "password1",
	})
	require.ErrorIs(t, err, ErrKeySourceUnavailable)

	identity, err := f.store.Identities().GetIdentityByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	n, err := f.refresh.DeleteByIdentity(ctx, identity.ID)
	require.NoError(t, err)
	require.Zero(t, n, "no orphaned refresh record")
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	reg := f.register(t, "a@x.com")

	access, err := f.codec.VerifyAccess(reg.Tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.sessions.Logout(ctx, access, reg.Tokens.RefreshToken))
	require.NoError(t, f.sessions.Logout(ctx, access, reg.Tokens.RefreshToken), "logout is idempotent")
	require.NoError(t, f.sessions.Logout(ctx, access, ""))
	require.NoError(t, f.sessions.Logout(ctx, access, "garbage"))

	_, err = f.sessions.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogoutIgnoresAnotherSubjectsToken(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	a := f.register(t, "a@x.com")
	b := f.register(t, "b@x.com")

	access, err := f.codec.VerifyAccess(a.Tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.sessions.Logout(ctx, access, b.Tokens.RefreshToken))

	_, err = f.sessions.Refresh(ctx, b.Tokens.RefreshToken)
	require.NoError(t, err, "b's session is untouched")
}

func TestSelf(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	reg := f.register(t, "a@x.com")

	me, err := f.sessions.Self(ctx, reg.Identity.Subject())
	require.NoError(t, err)
	require.Equal(t, reg.Identity.ID, me.ID)
	require.Equal(t, "a@x.com", me.Email)

	_, err = f.sessions.Self(ctx, "not-a-number")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.sessions.Self(ctx, "999999")
	require.ErrorIs(t, err, ErrIdentityNotFound)
}

func TestStoreTimeoutIsUnavailable(t *testing.T) {
	f := newFixture(t, withRefresh(blockingRefresh{}, 20*time.Millisecond))

	_, err := f.sessions.Register(t.Context(), RegisterInput{
		FirstName: "Bob", LastName: "Jones", Email: "b@x.com", Password: "password1",
	})
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.NotErrorIs(t, err, store.ErrNotFound)
}
