package jwtx

import (
	"fmt"
	"sync"
)

// KeyManager owns the access-token signing key for an instance. The key is
// loaded from its KeySource on first use and cached once it loads; a failed
// load is attempted again on the next call. Its public half is published
// through KeySet.
type KeyManager struct {
	KeySet *KeySet

	source KeySource

	mu     sync.RWMutex
	signer PublicSigner
}

// NewKeyManager creates a KeyManager with nothing loaded yet.
func NewKeyManager(source KeySource) *KeyManager {
	return &KeyManager{
		KeySet: NewKeySet(),
		source: source,
	}
}

// Source returns the configured key source kind.
func (km *KeyManager) Source() string {
	return km.source.Name()
}

// Signer returns the RS256 signer, loading it if needed. Every failure is
// wrapped in ErrKeySource.
func (km *KeyManager) Signer() (PublicSigner, error) {
	km.mu.RLock()
	s := km.signer
	km.mu.RUnlock()
	if s != nil {
		return s, nil
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	if km.signer != nil {
		return km.signer, nil
	}

	pemKey, err := km.source.PrivateKeyPEM()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKeySource, km.source.Name(), err)
	}

	signer, err := NewSignerRS256("", pemKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKeySource, km.source.Name(), err)
	}
	if err := signer.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrKeySource, km.source.Name(), err)
	}

	// Add signer's public key to KeySet
	if err := km.KeySet.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("%w: publish key: %w", ErrKeySource, err)
	}

	km.signer = signer
	return signer, nil
}

// Load eagerly loads the key. Startup uses it to report misconfiguration
// early without refusing to start.
func (km *KeyManager) Load() error {
	_, err := km.Signer()
	return err
}

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.KeySet.IsReady()
}

// Verifier returns an RS256 verifier backed by this manager's KeySet.
func (km *KeyManager) Verifier(issuer string) *RS256Verifier {
	return NewVerifierRS256(km.KeySet, issuer)
}
