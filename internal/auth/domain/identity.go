package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Identity is a registered account. PasswordHash never leaves the service.
type Identity struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	TenantID     *int64    `json:"tenantId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IdentityPatch carries the mutable fields of an identity; nil means keep.
type IdentityPatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *Role
	TenantID  *int64
	// ClearTenant detaches the identity from its tenant. It wins over TenantID.
	ClearTenant bool
}

var ErrInvalidSubject = errors.New("invalid subject")

// NormalizeEmail trims and lowercases an email so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Subject renders the identity id as a token subject.
func (i Identity) Subject() string {
	return FormatSubject(i.ID)
}

// FormatSubject renders an identity id as a token subject.
func FormatSubject(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseSubject converts a token subject back into an identity id.
func ParseSubject(sub string) (int64, error) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidSubject
	}
	return id, nil
}
