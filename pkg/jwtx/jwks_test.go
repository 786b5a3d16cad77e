package jwtx

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJWK_PEM_RSA(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwk := NewRSAJWK("test-key-id", "sig", "RS256", &privateKey.PublicKey)

	pemStr, err := jwk.PEM()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(pemStr, "-----BEGIN PUBLIC KEY-----"))
	require.True(t, strings.HasSuffix(strings.TrimSpace(pemStr), "-----END PUBLIC KEY-----"))

	block, _ := pem.Decode([]byte(pemStr))
	require.NotNil(t, block, "PEM block should be valid")

	parsedKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)

	rsaPubKey, ok := parsedKey.(*rsa.PublicKey)
	require.True(t, ok, "Parsed key should be an RSA public key")
	require.Equal(t, privateKey.PublicKey.N, rsaPubKey.N)
	require.Equal(t, privateKey.PublicKey.E, rsaPubKey.E)
}

func TestJWK_UnsupportedKty(t *testing.T) {
	_, err := JWK{Kty: "OKP"}.PEM()
	require.Error(t, err)
}

func TestJWKS_JSONShape(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	kid, err := KeyID(&privateKey.PublicKey)
	require.NoError(t, err)

	raw, err := json.Marshal(JWKS{Keys: []JWK{NewRSAJWK(kid, "sig", "RS256", &privateKey.PublicKey)}})
	require.NoError(t, err)

	var decoded map[string][]map[string]string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded["keys"], 1)

	k := decoded["keys"][0]
	require.Equal(t, "RSA", k["kty"])
	require.Equal(t, "sig", k["use"])
	require.Equal(t, "RS256", k["alg"])
	require.Equal(t, kid, k["kid"])
	require.Equal(t, "AQAB", k["e"])
	require.NotEmpty(t, k["n"])
}

func TestKeyIDIsStable(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	a, err := KeyID(&privateKey.PublicKey)
	require.NoError(t, err)
	b, err := KeyID(&privateKey.PublicKey)
	require.NoError(t, err)
	require.Equal(t, a, b)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	c, err := KeyID(&other.PublicKey)
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestKeySetResetFromJWKS(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := NewKeySet()
	require.False(t, ks.IsReady())

	err = ks.ResetFromJWKS(JWKS{Keys: []JWK{
		NewRSAJWK("a", "sig", "RS256", &privateKey.PublicKey),
		{Kty: "OKP", Kid: "b"},
		NewRSAJWK("c", "enc", "RSA-OAEP", &privateKey.PublicKey),
	}})
	require.NoError(t, err)
	require.True(t, ks.IsReady())

	_, err = ks.Get("a")
	require.NoError(t, err)
	_, err = ks.Get("b")
	require.ErrorIs(t, err, ErrNoKey)
	_, err = ks.Get("c")
	require.ErrorIs(t, err, ErrNoKey)
	require.Len(t, ks.PublicJWKS().Keys, 1)
}

func TestKeySetAddJWKIsIdempotent(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := NewKeySet()
	jwk := NewRSAJWK("a", "sig", "RS256", &privateKey.PublicKey)
	require.NoError(t, ks.AddJWK(jwk))
	require.NoError(t, ks.AddJWK(jwk))
	require.Len(t, ks.PublicJWKS().Keys, 1)
}

func TestKeySetResetKeepsSetOnError(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := NewKeySet()
	require.NoError(t, ks.AddJWK(NewRSAJWK("a", "sig", "RS256", &privateKey.PublicKey)))

	err = ks.ResetFromJWKS(JWKS{Keys: []JWK{{Kty: "RSA", Kid: "broken", N: "!!", E: "AQAB"}}})
	require.Error(t, err)

	_, err = ks.Get("a")
	require.NoError(t, err, "a failed refill leaves the old keys in place")
}
