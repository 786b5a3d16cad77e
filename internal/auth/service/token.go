package service

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultIssuer is the iss claim used when none is configured.
const DefaultIssuer = "auth-service"

// TokenConfig is fixed at startup and handed to NewTokenCodec.
type TokenConfig struct {
	Issuer        string
	RefreshSecret []byte
}

// TokenCodec issues and verifies both token kinds. Access tokens are RS256
// with the managed key, refresh tokens HS256 with a shared secret, and each
// kind verifies only under its own algorithm.
type TokenCodec struct {
	keys   *jwtx.KeyManager
	issuer string

	refreshSigner   jwtx.Signer
	accessVerifier  *jwtx.RS256Verifier
	refreshVerifier *jwtx.HS256Verifier
}

func NewTokenCodec(keys *jwtx.KeyManager, cfg TokenConfig) (*TokenCodec, error) {
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}

	refreshSigner, err := jwtx.NewSignerHS256(cfg.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("refresh signer: %w", err)
	}
	if err := refreshSigner.Validate(); err != nil {
		return nil, fmt.Errorf("refresh signer: %w", err)
	}

	return &TokenCodec{
		keys:            keys,
		issuer:          cfg.Issuer,
		refreshSigner:   refreshSigner,
		accessVerifier:  keys.Verifier(cfg.Issuer),
		refreshVerifier: jwtx.NewVerifierHS256(cfg.RefreshSecret, cfg.Issuer),
	}, nil
}

// Issuer returns the iss claim this codec writes and expects.
func (c *TokenCodec) Issuer() string { return c.issuer }

// IssueAccessToken signs an RS256 access token valid for jwtx.AccessTokenTTL.
func (c *TokenCodec) IssueAccessToken(subject string, role domain.Role) (string, error) {
	signer, err := c.keys.Signer()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrKeySourceUnavailable, err)
	}
	return signer.Sign(jwtx.NewAccessClaims(subject, role.String(), c.issuer, time.Now()))
}

// IssueRefreshToken signs an HS256 refresh token whose jti names recordID.
func (c *TokenCodec) IssueRefreshToken(subject string, role domain.Role, recordID int64) (string, error) {
	return c.refreshSigner.Sign(jwtx.NewRefreshClaims(subject, role.String(), recordID, c.issuer, time.Now()))
}

// Verify checks token under exactly the expected algorithm.
func (c *TokenCodec) Verify(token, expectedAlg string) (*jwtx.Claims, error) {
	switch expectedAlg {
	case jwt.SigningMethodRS256.Alg():
		return c.VerifyAccess(token)
	case jwt.SigningMethodHS256.Alg():
		return c.VerifyRefresh(token)
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidToken, expectedAlg)
	}
}

// VerifyAccess verifies an RS256 access token. Tokens carrying a jti are
// refresh-shaped and rejected.
func (c *TokenCodec) VerifyAccess(token string) (*jwtx.Claims, error) {
	// The public key is only known once the private key has loaded.
	if !c.keys.IsReady() {
		if err := c.keys.Load(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeySourceUnavailable, err)
		}
	}

	claims, err := c.accessVerifier.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.ID != "" {
		return nil, fmt.Errorf("%w: access token carries a jti", ErrInvalidToken)
	}
	if _, err := domain.ParseSubject(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// VerifyRefresh verifies an HS256 refresh token and requires a numeric jti.
func (c *TokenCodec) VerifyRefresh(token string) (*jwtx.Claims, error) {
	claims, err := c.refreshVerifier.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if _, err := claims.RecordID(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if _, err := domain.ParseSubject(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}
