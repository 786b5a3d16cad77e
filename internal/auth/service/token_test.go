package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T, src jwtx.KeySource) *TokenCodec {
	t.Helper()
	c, err := NewTokenCodec(jwtx.NewKeyManager(src), TokenConfig{RefreshSecret: testSecret})
	require.NoError(t, err)
	return c
}

func TestNewTokenCodec(t *testing.T) {
	t.Run("defaults the issuer", func(t *testing.T) {
		c := newCodec(t, testKeySource)
		require.Equal(t, DefaultIssuer, c.Issuer())
	})

	t.Run("rejects a short refresh secret", func(t *testing.T) {
		_, err := NewTokenCodec(jwtx.NewKeyManager(testKeySource), TokenConfig{RefreshSecret: []byte("short")})
		require.Error(t, err)
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	c := newCodec(t, testKeySource)

	tok, err := c.IssueAccessToken("42", domain.RoleManager)
	require.NoError(t, err)

	claims, err := c.VerifyAccess(tok)
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "manager", claims.Role)
	require.Equal(t, DefaultIssuer, claims.Issuer)
	require.Empty(t, claims.ID, "access tokens carry no jti")
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)

	claims, err = c.Verify(tok, "RS256")
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)

	_, err = c.Verify(tok, "HS256")
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, jwtx.ErrAlgMismatch)

	_, err = c.VerifyRefresh(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	c := newCodec(t, testKeySource)

	tok, err := c.IssueRefreshToken("42", domain.RoleCustomer, 7)
	require.NoError(t, err)

	claims, err := c.VerifyRefresh(tok)
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "7", claims.ID)
	require.WithinDuration(t, time.Now().Add(365*24*time.Hour), claims.ExpiresAt.Time, 5*time.Second)

	_, err = c.Verify(tok, "RS256")
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, jwtx.ErrAlgMismatch)

	_, err = c.Verify(tok, "none")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAccessRejectsJTI(t *testing.T) {
	km := jwtx.NewKeyManager(testKeySource)
	c, err := NewTokenCodec(km, TokenConfig{RefreshSecret: testSecret})
	require.NoError(t, err)

	signer, err := km.Signer()
	require.NoError(t, err)

	claims := jwtx.NewAccessClaims("42", "admin", DefaultIssuer, time.Now())
	claims.ID = "99"
	tok, err := signer.Sign(claims)
	require.NoError(t, err)

	_, err = c.VerifyAccess(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRefreshRequiresRecordID(t *testing.T) {
	c := newCodec(t, testKeySource)
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)

	for name, jti := range map[string]string{"missing": "", "not numeric": "abc", "zero": "0"} {
		t.Run(name, func(t *testing.T) {
			claims := jwtx.NewRefreshClaims("42", "customer", 1, DefaultIssuer, time.Now())
			claims.ID = jti
			tok, err := signer.Sign(claims)
			require.NoError(t, err)

			_, err = c.VerifyRefresh(tok)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestVerifyRejectsForeignIssuerAndExpiry(t *testing.T) {
	c := newCodec(t, testKeySource)
	signer, err := jwtx.NewSignerHS256(testSecret)
	require.NoError(t, err)

	foreign := jwtx.NewRefreshClaims("42", "customer", 1, "someone-else", time.Now())
	tok, err := signer.Sign(foreign)
	require.NoError(t, err)
	_, err = c.VerifyRefresh(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := jwtx.NewRefreshClaims("42", "customer", 1, DefaultIssuer, time.Now().Add(-2*365*24*time.Hour))
	tok, err = signer.Sign(expired)
	require.NoError(t, err)
	_, err = c.VerifyRefresh(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsAlgNone(t *testing.T) {
	c := newCodec(t, testKeySource)

	claims := jwtx.NewAccessClaims("42", "admin", DefaultIssuer, time.Now())
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = c.VerifyAccess(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = c.VerifyRefresh(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestKeySourceUnavailable(t *testing.T) {
	c := newCodec(t, jwtx.FileKeySource{Path: filepath.Join(t.TempDir(), "missing.pem")})

	_, err := c.IssueAccessToken("42", domain.RoleAdmin)
	require.ErrorIs(t, err, ErrKeySourceUnavailable)

	_, err = c.VerifyAccess("a.b.c")
	require.ErrorIs(t, err, ErrKeySourceUnavailable)

	// Refresh tokens do not depend on the key source.
	_, err = c.IssueRefreshToken("42", domain.RoleAdmin, 1)
	require.NoError(t, err)
}
