package jwtx

import (
	"github.com/golang-jwt/jwt/v5"
)

// HS256Verifier validates JWTs signed with a shared HMAC secret.
type HS256Verifier struct {
	secret []byte
	issuer string
}

// NewVerifierHS256 creates a verifier for tokens minted by an HS256Signer
// holding the same secret.
func NewVerifierHS256(secret []byte, issuer string) *HS256Verifier {
	return &HS256Verifier{secret: append([]byte(nil), secret...), issuer: issuer}
}

func (v *HS256Verifier) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Verify validates the JWT string and returns its parsed Claims.
func (v *HS256Verifier) Verify(tokenStr string) (*Claims, error) {
	return parse(tokenStr, v.Alg(), v.issuer, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
}
