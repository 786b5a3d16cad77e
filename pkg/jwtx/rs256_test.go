package jwtx_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "auth-service"

func newRSAPEM(t *testing.T) []byte {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privKey),
	})
}

func TestRS256SignAndVerify(t *testing.T) {
	signer, err := jwtx.NewSignerRS256("test-key", newRSAPEM(t))
	require.NoError(t, err)
	require.NotNil(t, signer)
	require.NoError(t, signer.Validate())

	claims := jwtx.NewAccessClaims("42", "manager", exampleIssuer, time.Now().UTC())

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	verifier := jwtx.NewVerifierRS256(keyset, exampleIssuer)

	parsed, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "42", parsed.Subject)
	require.Equal(t, "manager", parsed.Role)
	require.Equal(t, exampleIssuer, parsed.Issuer)
	require.Empty(t, parsed.ID, "access tokens carry no jti")
	require.WithinDuration(t, time.Now().Add(time.Hour), parsed.ExpiresAt.Time, 5*time.Second)
}

func TestRS256SignerPKCS8(t *testing.T) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(privKey)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	signer, err := jwtx.NewSignerRS256("", pemKey)
	require.NoError(t, err)

	kid, err := jwtx.KeyID(&privKey.PublicKey)
	require.NoError(t, err)
	require.Equal(t, kid, signer.KID(), "empty kid is derived from the public key")
}

func TestRS256SignerRejectsBadPEM(t *testing.T) {
	_, err := jwtx.NewSignerRS256("k", []byte("not a pem"))
	require.Error(t, err)

	_, err = jwtx.NewSignerRS256("k", pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1}}))
	require.Error(t, err)
}

func TestRS256VerifyFailsForWrongIssuer(t *testing.T) {
	signer, err := jwtx.NewSignerRS256("k1", newRSAPEM(t))
	require.NoError(t, err)

	token, err := signer.Sign(jwtx.NewAccessClaims("1", "admin", exampleIssuer, time.Now().UTC()))
	require.NoError(t, err)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	verifier := jwtx.NewVerifierRS256(keyset, "wrong-issuer")

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrIssuer)
}

func TestRS256VerifyFailsForUnknownKey(t *testing.T) {
	signer1, err := jwtx.NewSignerRS256("key1", newRSAPEM(t))
	require.NoError(t, err)
	signer2, err := jwtx.NewSignerRS256("key2", newRSAPEM(t))
	require.NoError(t, err)

	token, err := signer1.Sign(jwtx.NewAccessClaims("1", "admin", exampleIssuer, time.Now().UTC()))
	require.NoError(t, err)

	// Keyset only contains key2
	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer2))

	_, err = jwtx.NewVerifierRS256(keyset, exampleIssuer).Verify(token)
	require.ErrorIs(t, err, jwtx.ErrNoKey)
	require.ErrorIs(t, err, jwtx.ErrUnknownKID)
}

func TestRS256VerifyFailsForExpiredToken(t *testing.T) {
	signer, err := jwtx.NewSignerRS256("k1", newRSAPEM(t))
	require.NoError(t, err)

	claims := jwtx.NewAccessClaims("1", "admin", exampleIssuer, time.Now().Add(-2*time.Hour))
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	_, err = jwtx.NewVerifierRS256(keyset, exampleIssuer).Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestRS256VerifyFailsForTamperedToken(t *testing.T) {
	signer, err := jwtx.NewSignerRS256("k1", newRSAPEM(t))
	require.NoError(t, err)

	token, err := signer.Sign(jwtx.NewAccessClaims("1", "customer", exampleIssuer, time.Now().UTC()))
	require.NoError(t, err)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	// Flip a character in the signature segment
	b := []byte(token)
	if b[len(b)-2] == 'A' {
		b[len(b)-2] = 'B'
	} else {
		b[len(b)-2] = 'A'
	}

	_, err = jwtx.NewVerifierRS256(keyset, exampleIssuer).Verify(string(b))
	require.Error(t, err)
}

func TestRS256VerifyRejectsMissingKid(t *testing.T) {
	pemKey := newRSAPEM(t)
	signer, err := jwtx.NewSignerRS256("k1", pemKey)
	require.NoError(t, err)
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(pemKey)
	require.NoError(t, err)

	claims := jwtx.NewAccessClaims("1", "customer", exampleIssuer, time.Now().UTC())
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(priv)
	require.NoError(t, err)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	_, err = jwtx.NewVerifierRS256(keyset, exampleIssuer).Verify(token)
	require.ErrorIs(t, err, jwtx.ErrMalformed)
	require.NotErrorIs(t, err, jwtx.ErrUnknownKID)
}
