package auth

import (
	"context"
	"slices"
)

// Principal is an immutable snapshot of the caller's identity and roles.
// The zero value is the anonymous principal.
type Principal struct {
	user  *User
	roles []string
}

// Principal builds a fresh snapshot of the current caller. It is the only way
// to obtain a non-anonymous Principal.
func (a *Authenticator) Principal(ctx context.Context) (Principal, error) {
	user, err := a.CurrentUser(ctx)
	if err != nil {
		return Principal{}, err
	}
	if user == nil {
		return Principal{}, nil
	}

	roles, err := a.CurrentRoles(ctx)
	if err != nil {
		return Principal{}, err
	}
	return Principal{user: user, roles: roles}, nil
}

// IsAuthenticated reports whether the principal has a user.
func (p Principal) IsAuthenticated() bool { return p.user != nil }

// Name returns the user name, "" when anonymous.
func (p Principal) Name() string {
	if p.user == nil {
		return ""
	}
	return p.user.Name
}

// User returns a copy of the user, nil when anonymous.
func (p Principal) User() *User { return p.user.Clone() }

// Roles returns a copy of the role names.
func (p Principal) Roles() []string { return slices.Clone(p.roles) }

// IsInRole reports whether the principal belongs to role.
func (p Principal) IsInRole(role string) bool {
	return slices.Contains(p.roles, role)
}
