// Package authz decides whether a caller's role may perform an operation.
package authz

import "github.com/aussiebroadwan/authcore/internal/auth/domain"

// RoleSet is the set of roles an operation accepts.
type RoleSet map[domain.Role]struct{}

func NewRoleSet(roles ...domain.Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// IsAllowed reports whether caller is a member of required. Membership is
// exact: roles carry no hierarchy, so an admin is not implicitly a manager,
// and an empty set admits nobody.
func IsAllowed(caller domain.Role, required RoleSet) bool {
	_, ok := required[caller]
	return ok
}
