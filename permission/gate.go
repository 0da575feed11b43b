package permission

import (
	"errors"
	"fmt"
)

// Pair is one (action, resource) grant.
type Pair struct {
	Action   string
	Resource string
}

// RoleRule lists what a role grants. All marks a root role.
type RoleRule struct {
	Role  string
	All   bool
	Allow []Pair
}

// Policy is the fixed rule table evaluated by a [Gate]. Rules are listed in
// privilege order, highest first.
type Policy struct {
	Width int
	Rules []RoleRule
}

// Subject is the caller being checked.
type Subject struct {
	Authenticated bool
	Roles         []string
}

// Gate answers role and permission queries against a frozen [Policy].
// All methods are pure and safe for concurrent use.
type Gate struct {
	registry *Registry
	roles    *RoleManager
	order    []string
}

// NewGate registers every pair named in p, composes role masks and freezes both.
func NewGate(p Policy) (*Gate, error) {
	if len(p.Rules) == 0 {
		return nil, errors.New("policy has no rules")
	}
	width := p.Width
	if width == 0 {
		width = 64
	}

	registry, err := NewRegistry(width, true)
	if err != nil {
		return nil, err
	}

	for _, rule := range p.Rules {
		for _, pair := range rule.Allow {
			name := Name(pair.Action, pair.Resource)
			if _, ok := registry.Bit(name); ok {
				continue
			}
			if _, err := registry.Register(name); err != nil {
				return nil, err
			}
		}
	}
	registry.Freeze()

	roles := NewRoleManager(registry)
	order := make([]string, 0, len(p.Rules))
	for _, rule := range p.Rules {
		if rule.All {
			err = roles.RegisterRootRole(rule.Role)
		} else {
			names := make([]string, 0, len(rule.Allow))
			for _, pair := range rule.Allow {
				names = append(names, Name(pair.Action, pair.Resource))
			}
			err = roles.RegisterRole(rule.Role, names)
		}
		if err != nil {
			return nil, fmt.Errorf("policy: %w", err)
		}
		order = append(order, rule.Role)
	}
	roles.Freeze()

	return &Gate{registry: registry, roles: roles, order: order}, nil
}

// HasRole reports whether s is authenticated and holds at least one of wanted.
func (g *Gate) HasRole(s Subject, wanted ...string) bool {
	if !s.Authenticated || len(wanted) == 0 {
		return false
	}
	for _, have := range s.Roles {
		for _, w := range wanted {
			if have == w {
				return true
			}
		}
	}
	return false
}

// Can evaluates the policy for (action, resource). Roles are consulted in
// privilege order; the first granting role wins. Unauthenticated subjects and
// roles absent from the policy are denied.
func (g *Gate) Can(s Subject, action, resource string) bool {
	if g == nil || !s.Authenticated {
		return false
	}

	name := Name(action, resource)
	for _, role := range g.order {
		if !holds(s.Roles, role) {
			continue
		}
		if g.roles.Grants(role, name) {
			return true
		}
	}
	return false
}

// Roles returns the policy roles in privilege order.
func (g *Gate) Roles() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

func holds(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
