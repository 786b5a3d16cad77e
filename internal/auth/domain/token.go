package domain

import "time"

// TokenPair is what login, register and refresh hand back to the caller.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"` // always "Bearer"
	ExpiresIn    int64  `json:"expiresIn"` // access token lifetime in seconds
}

// RefreshRecord is the persisted half of a refresh token. Its existence is
// what makes the token redeemable; revocation deletes it. Records are never
// updated in place.
type RefreshRecord struct {
	ID         int64
	IdentityID int64
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r RefreshRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
