package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// MinHMACSecretLen is the shortest HS256 secret we accept (256 bits).
const MinHMACSecretLen = 32

// HS256Signer signs with a shared secret. Only the issuing service holds
// it, so tokens signed here are never verifiable by resource servers.
type HS256Signer struct {
	secret []byte
}

func newHS256Signer(secret []byte) (*HS256Signer, error) {
	s := &HS256Signer{secret: append([]byte(nil), secret...)}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign returns the compact HS256 serialization of claims.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Validate rejects secrets too short to resist brute force.
func (s *HS256Signer) Validate() error {
	if len(s.secret) < MinHMACSecretLen {
		return errors.New("jwtx: HMAC secret must be at least 32 bytes")
	}
	return nil
}
