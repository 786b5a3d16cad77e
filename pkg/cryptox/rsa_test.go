package cryptox_test

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateRSAKeyFormats(t *testing.T) {
	tests := []struct {
		name     string
		generate func(int) ([]byte, error)
		pemType  string
		parse    func([]byte) (*rsa.PrivateKey, error)
	}{
		{
			name:     "pkcs1",
			generate: cryptox.GenerateRSAKey,
			pemType:  "RSA PRIVATE KEY",
			parse:    x509.ParsePKCS1PrivateKey,
		},
		{
			name:     "pkcs8",
			generate: cryptox.GenerateRSAKeyPKCS8,
			pemType:  "PRIVATE KEY",
			parse: func(der []byte) (*rsa.PrivateKey, error) {
				k, err := x509.ParsePKCS8PrivateKey(der)
				if err != nil {
					return nil, err
				}
				return k.(*rsa.PrivateKey), nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pemBytes, err := tt.generate(2048)
			require.NoError(t, err)

			block, _ := pem.Decode(pemBytes)
			require.NotNil(t, block)
			require.Equal(t, tt.pemType, block.Type)

			key, err := tt.parse(block.Bytes)
			require.NoError(t, err)
			require.Equal(t, 2048, key.N.BitLen())

			pubPEM, err := cryptox.RSAPublicKeyPEM(pemBytes)
			require.NoError(t, err)
			pubBlock, _ := pem.Decode(pubPEM)
			require.NotNil(t, pubBlock)
			require.Equal(t, "PUBLIC KEY", pubBlock.Type)

			pub, err := x509.ParsePKIXPublicKey(pubBlock.Bytes)
			require.NoError(t, err)
			require.True(t, key.PublicKey.Equal(pub))
		})

		t.Run(tt.name+" rejects small keys", func(t *testing.T) {
			_, err := tt.generate(1024)
			require.ErrorIs(t, err, cryptox.ErrRSAKeyTooSmall)
		})
	}
}

func TestRSAPublicKeyPEMRejectsGarbage(t *testing.T) {
	for _, in := range [][]byte{
		nil,
		[]byte("not pem"),
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}}),
		pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: []byte{1, 2, 3}}),
	} {
		_, err := cryptox.RSAPublicKeyPEM(in)
		require.ErrorIs(t, err, cryptox.ErrNotRSAKey)
	}
}
