package jwtx_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestKeyManager_Ephemeral(t *testing.T) {
	km := jwtx.NewKeyManager(&jwtx.EphemeralKeySource{Bits: 2048})
	require.False(t, km.IsReady())
	require.Equal(t, jwtx.KeySourceEphemeral, km.Source())

	signer, err := km.Signer()
	require.NoError(t, err)
	require.True(t, km.IsReady())

	again, err := km.Signer()
	require.NoError(t, err)
	require.Same(t, signer, again, "signer is cached after the first load")

	jwks := km.KeySet.PublicJWKS()
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, signer.KID(), jwks.Keys[0].Kid)

	token, err := signer.Sign(jwtx.NewAccessClaims("3", "customer", exampleIssuer, time.Now().UTC()))
	require.NoError(t, err)

	claims, err := km.Verifier(exampleIssuer).Verify(token)
	require.NoError(t, err)
	require.Equal(t, "3", claims.Subject)
}

func TestKeyManager_FileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "private.pem")

	km := jwtx.NewKeyManager(jwtx.FileKeySource{Path: path})

	// Missing file: every call fails with ErrKeySource and nothing is published.
	_, err := km.Signer()
	require.ErrorIs(t, err, jwtx.ErrKeySource)
	require.False(t, km.IsReady())

	// Once the key shows up the next call picks it up.
	require.NoError(t, os.WriteFile(path, newRSAPEM(t), 0600))
	signer, err := km.Signer()
	require.NoError(t, err)
	require.True(t, km.IsReady())

	// The same PEM on another replica derives the same kid.
	other := jwtx.NewKeyManager(jwtx.FileKeySource{Path: path})
	otherSigner, err := other.Signer()
	require.NoError(t, err)
	require.Equal(t, signer.KID(), otherSigner.KID())
}

func TestKeyManager_InvalidPEM(t *testing.T) {
	km := jwtx.NewKeyManager(jwtx.PEMKeySource{PEM: []byte("-----BEGIN NOTHING-----")})
	require.ErrorIs(t, km.Load(), jwtx.ErrKeySource)

	km = jwtx.NewKeyManager(jwtx.PEMKeySource{})
	require.ErrorIs(t, km.Load(), jwtx.ErrKeySource)
}

func TestNewKeySource(t *testing.T) {
	tests := []struct {
		kind    string
		want    string
		wantErr bool
	}{
		{"file", jwtx.KeySourceFile, false},
		{"", jwtx.KeySourceFile, false},
		{"pem", jwtx.KeySourcePEM, false},
		{"ephemeral", jwtx.KeySourceEphemeral, false},
		{"vault", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			src, err := jwtx.NewKeySource(tt.kind, "/tmp/x.pem", "", 2048)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, src.Name())
		})
	}
}
