package jwtx

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
	Validate() error
}

// PublicSigner is a Signer whose verification key can be published in a
// JWKS. Symmetric signers never are.
type PublicSigner interface {
	Signer
	KID() string
	PublicJWK() JWK
}

// NewSignerRS256 creates an RS256 signer from PEM bytes.
func NewSignerRS256(kid string, pemKey []byte) (PublicSigner, error) {
	return newRS256Signer(kid, pemKey)
}

// NewSignerHS256 creates an HS256 signer from a shared secret.
func NewSignerHS256(secret []byte) (Signer, error) {
	return newHS256Signer(secret)
}
