package jwtx

import "github.com/golang-jwt/jwt/v5"

// RS256Verifier checks access tokens against a KeySet. Tokens naming any
// other algorithm are rejected before a key is looked up.
type RS256Verifier struct {
	keys   *KeySet
	issuer string
}

func NewVerifierRS256(keys *KeySet, issuer string) *RS256Verifier {
	return &RS256Verifier{keys: keys, issuer: issuer}
}

func (v *RS256Verifier) Alg() string { return jwt.SigningMethodRS256.Alg() }

func (v *RS256Verifier) Verify(tokenStr string) (*Claims, error) {
	return parse(tokenStr, v.Alg(), v.issuer, v.keys.keyFunc)
}
