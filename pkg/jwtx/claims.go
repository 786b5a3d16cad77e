package jwtx

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes are fixed per token kind. Cookie max-ages are derived from
// these, so changing them changes the transport contract too.
const (
	// AccessTokenTTL is the lifetime of an RS256 access token.
	AccessTokenTTL = time.Hour

	// RefreshTokenTTL is the lifetime of an HS256 refresh token.
	RefreshTokenTTL = 365 * 24 * time.Hour
)

// Claims are the claims carried by both token kinds. Access tokens never
// carry a jti; refresh tokens always carry the record id as jti.
type Claims struct {
	jwt.RegisteredClaims

	// Role of the subject at issuance: "customer", "manager" or "admin".
	Role string `json:"role"`
}

// NewAccessClaims builds claims for an access token.
func NewAccessClaims(subject, role, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		},
		Role: role,
	}
}

// NewRefreshClaims builds claims for a refresh token bound to a store record.
func NewRefreshClaims(subject, role string, recordID int64, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTokenTTL)),
			ID:        strconv.FormatInt(recordID, 10),
		},
		Role: role,
	}
}

// RecordID parses the jti as a refresh record id.
func (c *Claims) RecordID() (int64, error) {
	if c.ID == "" {
		return 0, ErrInvalidClaim
	}
	id, err := strconv.ParseInt(c.ID, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidClaim
	}
	return id, nil
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
// A token without exp is rejected; every token we mint has one.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}

	// Check expired (exp)
	if now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	// Check if a valid token isn't used before it is valid (nbf)
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
