package authz

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"gopkg.in/yaml.v3"
)

// Operation names guarded by the policy.
const (
	OpTenantsCreate = "tenants.create"
	OpTenantsList   = "tenants.list"
	OpTenantsGet    = "tenants.get"
	OpTenantsUpdate = "tenants.update"
	OpTenantsDelete = "tenants.delete"

	OpUsersCreate = "users.create"
	OpUsersGet    = "users.get"
	OpUsersUpdate = "users.update"
	OpUsersDelete = "users.delete"
)

//go:embed default_policy.yaml
var defaultPolicyYAML []byte

var ErrInvalidPolicy = errors.New("invalid_policy")

type rule struct {
	Public bool     `yaml:"public"`
	Roles  []string `yaml:"roles"`
}

type policyFile struct {
	Operations map[string]rule `yaml:"operations"`
}

type compiledRule struct {
	public bool
	roles  RoleSet
}

// Policy maps operation names to the roles allowed to perform them. It is
// immutable once built.
type Policy struct {
	ops map[string]compiledRule
}

// DefaultPolicy returns the embedded policy.
func DefaultPolicy() *Policy {
	p, err := ParsePolicy(defaultPolicyYAML)
	if err != nil {
		panic(fmt.Sprintf("authz: embedded policy: %v", err))
	}
	return p
}

// LoadPolicy reads a policy file, or returns the embedded default when path
// is empty.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %q: %w", path, err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes and validates a YAML policy. Unknown fields and roles
// are rejected, as is a rule that is public and lists roles at once.
func ParsePolicy(data []byte) (*Policy, error) {
	var f policyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}

	p := &Policy{ops: make(map[string]compiledRule, len(f.Operations))}
	for op, r := range f.Operations {
		if op == "" {
			return nil, fmt.Errorf("%w: empty operation name", ErrInvalidPolicy)
		}
		if r.Public && len(r.Roles) > 0 {
			return nil, fmt.Errorf("%w: %s is public and lists roles", ErrInvalidPolicy, op)
		}

		roles := make([]domain.Role, 0, len(r.Roles))
		for _, name := range r.Roles {
			role, err := domain.ParseRole(name)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPolicy, op, err)
			}
			roles = append(roles, role)
		}
		p.ops[op] = compiledRule{public: r.Public, roles: NewRoleSet(roles...)}
	}
	return p, nil
}

// Allowed reports whether role may perform op. Unknown operations are denied.
func (p *Policy) Allowed(op string, role domain.Role) bool {
	r, ok := p.ops[op]
	if !ok {
		return false
	}
	if r.public {
		return true
	}
	return IsAllowed(role, r.roles)
}

// IsPublic reports whether op needs no authentication at all.
func (p *Policy) IsPublic(op string) bool {
	return p.ops[op].public
}

// Roles returns the roles allowed for op, sorted. Public and unknown
// operations return nil.
func (p *Policy) Roles(op string) []domain.Role {
	r, ok := p.ops[op]
	if !ok || r.public {
		return nil
	}
	out := make([]domain.Role, 0, len(r.roles))
	for role := range r.roles {
		out = append(out, role)
	}
	slices.Sort(out)
	return out
}

// Operations lists every operation the policy knows, sorted.
func (p *Policy) Operations() []string {
	ops := make([]string, 0, len(p.ops))
	for op := range p.ops {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}
