package jwtx

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet is the set of RSA verification keys, indexed by kid. The issuer
// publishes it as the JWKS document; resource servers refill it from one.
// Safe for concurrent use.
type KeySet struct {
	mu    sync.RWMutex
	order []string // publication order
	keys  map[string]keyEntry
}

type keyEntry struct {
	jwk JWK
	pub *rsa.PublicKey
}

func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]keyEntry)}
}

// AddSigner publishes the public half of s.
func (k *KeySet) AddSigner(s PublicSigner) error {
	return k.AddJWK(s.PublicJWK())
}

// AddJWK adds one key. A kid that is already present is left alone.
func (k *KeySet) AddJWK(j JWK) error {
	pub, err := j.RSAPublicKey()
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if _, dup := k.keys[j.Kid]; !dup {
		k.keys[j.Kid] = keyEntry{jwk: j, pub: pub}
		k.order = append(k.order, j.Kid)
	}
	return nil
}

// ResetFromJWKS swaps the whole set for the RSA signing keys in jwks. Other
// key types and encryption keys are ignored. On error the set is unchanged.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	keys := make(map[string]keyEntry, len(jwks.Keys))
	order := make([]string, 0, len(jwks.Keys))
	for _, j := range jwks.Keys {
		if !isRSASigningKey(j) {
			continue
		}
		pub, err := j.RSAPublicKey()
		if err != nil {
			return fmt.Errorf("jwtx: kid %q: %w", j.Kid, err)
		}
		if _, dup := keys[j.Kid]; !dup {
			order = append(order, j.Kid)
		}
		keys[j.Kid] = keyEntry{jwk: j, pub: pub}
	}

	k.mu.Lock()
	k.keys, k.order = keys, order
	k.mu.Unlock()
	return nil
}

func isRSASigningKey(j JWK) bool {
	return j.Kty == "RSA" && (j.Use == "" || j.Use == "sig")
}

// Get returns the key published under kid, or ErrNoKey.
func (k *KeySet) Get(kid string) (*rsa.PublicKey, error) {
	k.mu.RLock()
	e, ok := k.keys[kid]
	k.mu.RUnlock()
	if !ok {
		return nil, ErrNoKey
	}
	return e.pub, nil
}

// PublicJWKS returns a copy of the set as a JWKS document.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := JWKS{Keys: make([]JWK, 0, len(k.order))}
	for _, kid := range k.order {
		out.Keys = append(out.Keys, k.keys[kid].jwk)
	}
	return out
}

// IsReady reports whether any key is loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys) > 0
}

// keyFunc resolves the verification key from the token's kid header.
func (k *KeySet) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("%w: no kid header", ErrMalformed)
	}
	pub, err := k.Get(kid)
	if err != nil {
		return nil, fmt.Errorf("kid %q: %w", kid, err)
	}
	return pub, nil
}
