package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

// Session is an identity together with the token pair just issued for it.
type Session struct {
	Identity domain.Identity
	Tokens   domain.TokenPair
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// SessionManager drives register, login, refresh and logout. It keeps no
// state of its own: a session exists exactly as long as its refresh record.
type SessionManager struct {
	Store   store.Store         // identities
	Records store.RefreshTokens // refresh records, SQL or Redis
	Codec   *TokenCodec
	Hasher  *cryptox.Hasher

	// Timeout bounds each store call; zero means DefaultStoreTimeout.
	Timeout time.Duration
}

// Register creates a customer identity and signs it in.
func (m *SessionManager) Register(ctx context.Context, in RegisterInput) (Session, error) {
	l := slogx.FromContext(ctx)

	hash, err := m.Hasher.Hash(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	sctx, cancel := withStoreTimeout(ctx, m.Timeout)
	identity, err := m.Store.Identities().CreateIdentity(sctx, domain.Identity{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        domain.NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
	})
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return Session{}, ErrConflict
		}
		return Session{}, storeErr(err)
	}

	l.Info("identity registered", slog.Int64("identity_id", identity.ID))
	return m.startSession(ctx, identity)
}

// Login checks credentials and starts a new session. An unknown email and a
// wrong password are indistinguishable, in result and in time spent.
func (m *SessionManager) Login(ctx context.Context, email, password string) (Session, error) {
	l := slogx.FromContext(ctx)

	sctx, cancel := withStoreTimeout(ctx, m.Timeout)
	identity, err := m.Store.Identities().GetIdentityByEmail(sctx, domain.NormalizeEmail(email))
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.Hasher.CompareDummy(password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, storeErr(err)
	}

	if !m.Hasher.Compare(password, identity.PasswordHash) {
		l.Info("login rejected", slog.Int64("identity_id", identity.ID))
		return Session{}, ErrInvalidCredentials
	}

	if m.Hasher.NeedsRehash(identity.PasswordHash) {
		m.rehash(ctx, identity.ID, password)
	}

	return m.startSession(ctx, identity)
}

// rehash upgrades a legacy hash. Failure only costs the upgrade.
func (m *SessionManager) rehash(ctx context.Context, identityID int64, password string) {
	l := slogx.FromContext(ctx)

	hash, err := m.Hasher.Hash(password)
	if err != nil {
		l.Warn("password rehash failed", slog.Int64("identity_id", identityID), slog.Any("error", err))
		return
	}

	sctx, cancel := withStoreTimeout(ctx, m.Timeout)
	defer cancel()
	if err := m.Store.Identities().UpdatePasswordHash(sctx, identityID, hash); err != nil {
		l.Warn("password rehash not stored", slog.Int64("identity_id", identityID), slog.Any("error", err))
		return
	}
	l.Info("password rehashed", slog.Int64("identity_id", identityID))
}

// startSession creates a refresh record, then issues the refresh token bound
// to it and the access token. If either token cannot be issued the record is
// removed again.
func (m *SessionManager) startSession(ctx context.Context, identity domain.Identity) (Session, error) {
	sctx, cancel := withStoreTimeout(ctx, m.Timeout)
	rec, err := m.Records.Create(sctx, identity.ID, time.Now().Add(jwtx.RefreshTokenTTL))
	cancel()
	if err != nil {
		return Session{}, storeErr(err)
	}

	refreshToken, err := m.Codec.IssueRefreshToken(identity.Subject(), identity.Role, rec.ID)
	if err != nil {
		m.discardRecord(ctx, rec.ID)
		return Session{}, fmt.Errorf("issue refresh token: %w", err)
	}

	accessToken, err := m.Codec.IssueAccessToken(identity.Subject(), identity.Role)
	if err != nil {
		m.discardRecord(ctx, rec.ID)
		return Session{}, err
	}

	return Session{Identity: identity, Tokens: tokenPair(accessToken, refreshToken)}, nil
}

// Refresh redeems a refresh token for a new pair. The token is single use:
// its record is rotated away, so presenting it again fails.
func (m *SessionManager) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	l := slogx.FromContext(ctx)

	claims, err := m.Codec.VerifyRefresh(refreshToken)
	if err != nil {
		return Session{}, err
	}
	recordID, _ := claims.RecordID()
	identityID, _ := domain.ParseSubject(claims.Subject)

	sctx, cancel := withStoreTimeout(ctx, m.Timeout)
	identity, err := m.Store.Identities().GetIdentityByID(sctx, identityID)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, ErrIdentityNotFound
		}
		return Session{}, storeErr(err)
	}

	// Issued before rotating so an unavailable key leaves the old record,
	// and with it the caller's session, intact.
	accessToken, err := m.Codec.IssueAccessToken(identity.Subject(), identity.Role)
	if err != nil {
		return Session{}, err
	}

	sctx, cancel = withStoreTimeout(ctx, m.Timeout)
	rec, err := m.Records.Rotate(sctx, recordID, identity.ID, time.Now().Add(jwtx.RefreshTokenTTL))
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Warn("refresh token not redeemable",
				slog.Int64("identity_id", identity.ID),
				slog.String("token_fp", cryptox.FingerprintToken(refreshToken)),
			)
			return Session{}, ErrInvalidToken
		}
		return Session{}, storeErr(err)
	}

	newRefresh, err := m.Codec.IssueRefreshToken(identity.Subject(), identity.Role, rec.ID)
	if err != nil {
		m.discardRecord(ctx, rec.ID)
		return Session{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return Session{Identity: identity, Tokens: tokenPair(accessToken, newRefresh)}, nil
}

// Logout revokes the session behind refreshToken. It succeeds when there is
// nothing to revoke: no token, an unverifiable token, a token of another
// subject, or a record already gone. Only a store failure is reported.
func (m *SessionManager) Logout(ctx context.Context, access *jwtx.Claims, refreshToken string) error {
	l := slogx.FromContext(ctx)

	if refreshToken == "" {
		return nil
	}

	claims, err := m.Codec.VerifyRefresh(refreshToken)
	if err != nil {
		l.Debug("logout with unverifiable refresh token", slog.Any("error", err))
		return nil
	}
	if access == nil || claims.Subject != access.Subject {
		l.Warn("logout refresh token belongs to another subject")
		return nil
	}
	recordID, _ := claims.RecordID()

	sctx, cancel := withStoreTimeout(ctx, m.Timeout)
	defer cancel()
	return storeErr(m.Records.DeleteByID(sctx, recordID))
}

// Self returns the identity named by an access token subject.
func (m *SessionManager) Self(ctx context.Context, subject string) (domain.Identity, error) {
	id, err := domain.ParseSubject(subject)
	if err != nil {
		return domain.Identity{}, ErrInvalidToken
	}

	sctx, cancel := withStoreTimeout(ctx, m.Timeout)
	defer cancel()
	identity, err := m.Store.Identities().GetIdentityByID(sctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, ErrIdentityNotFound
		}
		return domain.Identity{}, storeErr(err)
	}
	return identity, nil
}

// discardRecord removes a record whose token never reached the caller. It
// must run even when the request context is done.
func (m *SessionManager) discardRecord(ctx context.Context, id int64) {
	sctx, cancel := withStoreTimeout(context.WithoutCancel(ctx), m.Timeout)
	defer cancel()
	if err := m.Records.DeleteByID(sctx, id); err != nil {
		slogx.FromContext(ctx).Error("failed to discard refresh record",
			slog.Int64("record_id", id), slog.Any("error", err))
	}
}

func tokenPair(access, refresh string) domain.TokenPair {
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(jwtx.AccessTokenTTL / time.Second),
	}
}
