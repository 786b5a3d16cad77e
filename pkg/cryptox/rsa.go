package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// MinRSABits is the smallest modulus accepted for access-token signing keys.
const MinRSABits = 2048

var (
	ErrRSAKeyTooSmall = fmt.Errorf("cryptox: RSA key size must be at least %d bits", MinRSABits)
	ErrNotRSAKey      = errors.New("cryptox: PEM does not hold an RSA private key")
)

func newRSAKey(bits int) (*rsa.PrivateKey, error) {
	if bits < MinRSABits {
		return nil, ErrRSAKeyTooSmall
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate RSA key: %w", err)
	}
	return key, nil
}

// GenerateRSAKey returns a new PKCS#1 ("RSA PRIVATE KEY") PEM.
func GenerateRSAKey(bits int) ([]byte, error) {
	key, err := newRSAKey(bits)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), nil
}

// GenerateRSAKeyPKCS8 returns a new PKCS#8 ("PRIVATE KEY") PEM, the form
// openssl genpkey writes.
func GenerateRSAKeyPKCS8(bits int) ([]byte, error) {
	key, err := newRSAKey(bits)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: marshal PKCS8 key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// RSAPublicKeyPEM derives the PKIX ("PUBLIC KEY") PEM from a PKCS#1 or
// PKCS#8 private key PEM.
func RSAPublicKeyPEM(privatePEM []byte) ([]byte, error) {
	block, _ := pem.Decode(privatePEM)
	if block == nil {
		return nil, ErrNotRSAKey
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		k, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotRSAKey, err)
		}
		key = k
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotRSAKey, err)
		}
		rk, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, ErrNotRSAKey
		}
		key = rk
	default:
		return nil, ErrNotRSAKey
	}

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("cryptox: marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
