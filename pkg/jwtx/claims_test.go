package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewAccessClaims(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	c := jwtx.NewAccessClaims("12", "admin", exampleIssuer, now)

	require.Equal(t, "12", c.Subject)
	require.Equal(t, "admin", c.Role)
	require.Equal(t, exampleIssuer, c.Issuer)
	require.Empty(t, c.ID)
	require.Equal(t, now.Add(time.Hour), c.ExpiresAt.Time)
}

func TestNewRefreshClaims(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	c := jwtx.NewRefreshClaims("12", "admin", 31, exampleIssuer, now)

	require.Equal(t, "31", c.ID)
	require.Equal(t, now.Add(365*24*time.Hour), c.ExpiresAt.Time)
}

func TestClaimsRecordID(t *testing.T) {
	tests := []struct {
		name    string
		jti     string
		want    int64
		wantErr bool
	}{
		{"numeric", "17", 17, false},
		{"empty", "", 0, true},
		{"zero", "0", 0, true},
		{"negative", "-4", 0, true},
		{"not a number", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ID: tt.jti}}
			got, err := c.RecordID()
			if tt.wantErr {
				require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClaimsValidateIssuer(t *testing.T) {
	c := jwtx.NewAccessClaims("1", "customer", "a", time.Now())
	require.NoError(t, c.ValidateIssuer(""))
	require.NoError(t, c.ValidateIssuer("a"))
	require.ErrorIs(t, c.ValidateIssuer("b"), jwtx.ErrIssuer)
}

func TestClaimsValidateExpiry(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c := jwtx.NewAccessClaims("1", "customer", "a", time.Now())
		require.NoError(t, c.ValidateExpiry())
	})

	t.Run("expired", func(t *testing.T) {
		c := jwtx.NewAccessClaims("1", "customer", "a", time.Now().Add(-2*time.Hour))
		require.ErrorIs(t, c.ValidateExpiry(), jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := jwtx.NewAccessClaims("1", "customer", "a", time.Now().Add(10*time.Minute))
		require.ErrorIs(t, c.ValidateExpiry(), jwtx.ErrNotYetValid)
	})

	t.Run("missing exp", func(t *testing.T) {
		c := jwtx.Claims{}
		require.ErrorIs(t, c.ValidateExpiry(), jwtx.ErrInvalidClaim)
	})
}
