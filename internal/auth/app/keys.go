package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/authcore/pkg/jwtx"
)

// InitAuthKeys builds the KeyManager for the access-token signing key.
//
// Key sources:
//   - "file": a PKCS#1 or PKCS#8 PEM file at keys.path, read on first use.
//   - "pem": the PEM given inline in keys.pem.
//   - "ephemeral": a key generated at startup and held only in memory.
//     Access tokens stop verifying when the process restarts.
//
// A key that fails to load is only logged. The service still starts, reports
// not-ready on /readyz and answers token operations with a server error until
// the key becomes readable.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	source, err := jwtx.NewKeySource(cfg.Keys.Source, cfg.Keys.Path, cfg.Keys.PEM, cfg.Keys.RSABits)
	if err != nil {
		return nil, fmt.Errorf("key source: %w", err)
	}

	km := jwtx.NewKeyManager(source)
	if err := km.Load(); err != nil {
		logger.Warn("signing key not loaded", "source", km.Source(), "error", err)
		return km, nil
	}

	signer, err := km.Signer()
	if err != nil {
		return km, nil
	}
	logger.Info("signing key loaded", "source", km.Source(), "kid", signer.KID())
	if km.Source() == jwtx.KeySourceEphemeral {
		logger.Warn("ephemeral signing key in use, access tokens will not survive a restart")
	}
	return km, nil
}
