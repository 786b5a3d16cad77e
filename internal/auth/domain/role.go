package domain

import "errors"

// Role is the closed set of roles an identity can hold. Roles are flat: no
// role implies another.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

var ErrUnknownRole = errors.New("unknown role")

// Roles lists every valid role.
var Roles = []Role{RoleCustomer, RoleManager, RoleAdmin}

// ParseRole maps a string to a Role, rejecting anything outside the set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleManager, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
