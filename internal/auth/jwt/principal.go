package jwt

import (
	"sort"
	"strings"

	"github.com/vyrodovalexey/gymgw/internal/config"
)

// DefaultRoleClaim is the Keycloak realm roles claim path.
const DefaultRoleClaim = config.DefaultRoleClaim

// Principal is the authenticated caller of a single request.
// It is not modified after construction.
type Principal struct {
	Subject string
	Roles   map[string]struct{}
}

// NewPrincipal creates a principal with the given roles.
func NewPrincipal(subject string, roles ...string) *Principal {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return &Principal{Subject: subject, Roles: set}
}

// HasRole reports whether the principal holds role. Matching is exact.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	_, ok := p.Roles[role]
	return ok
}

// HasAnyRole reports whether the principal holds at least one of roles.
func (p *Principal) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// RoleList returns the roles sorted, for logging.
func (p *Principal) RoleList() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Roles))
	for r := range p.Roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// ExtractRoles reads the role list found at the dotted claimPath.
// A missing claim, a non-object intermediate or a value that is not a
// list of strings yields an empty set. Non-string list items are skipped.
func ExtractRoles(claims map[string]any, claimPath string) map[string]struct{} {
	roles := make(map[string]struct{})
	if claimPath == "" {
		claimPath = DefaultRoleClaim
	}

	var current any = claims
	for _, part := range strings.Split(claimPath, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return roles
		}
		current, ok = obj[part]
		if !ok {
			return roles
		}
	}

	switch list := current.(type) {
	case []string:
		for _, r := range list {
			roles[r] = struct{}{}
		}
	case []any:
		for _, item := range list {
			if r, ok := item.(string); ok {
				roles[r] = struct{}{}
			}
		}
	}
	return roles
}
