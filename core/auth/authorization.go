package auth

import (
	"context"

	"github.com/dmitrymomot/rpcgate/core/fault"
)

// RequireAuthenticatedUser fails with fault.ErrAccessDenied for anonymous
// callers. With onlineCheck it also fails with fault.ErrSessionExpired when
// the user has been inactive longer than the store's online window.
func (a *Authenticator) RequireAuthenticatedUser(ctx context.Context, onlineCheck bool) error {
	p, err := a.Principal(ctx)
	if err != nil {
		return err
	}
	return a.requireAuthenticated(ctx, p, onlineCheck)
}

// RequireRole enforces RequireAuthenticatedUser and then membership in role.
// With builtinSuffice a built-in user passes without the role.
func (a *Authenticator) RequireRole(ctx context.Context, role string, builtinSuffice, onlineCheck bool) error {
	p, err := a.Principal(ctx)
	if err != nil {
		return err
	}
	if err := a.requireAuthenticated(ctx, p, onlineCheck); err != nil {
		return err
	}

	if p.IsInRole(role) || (builtinSuffice && p.user.Builtin) {
		return nil
	}
	return fault.ErrAccessDenied.WithMessagef("You must be a member of '%s' to perform this operation.", role)
}

// RequireAdministrator requires the administrator role; built-in users pass.
func (a *Authenticator) RequireAdministrator(ctx context.Context) error {
	return a.RequireRole(ctx, a.m.cfg.AdministratorRole, true, false)
}

func (a *Authenticator) requireAuthenticated(ctx context.Context, p Principal, onlineCheck bool) error {
	if !p.IsAuthenticated() {
		return errAuthenticationRequired
	}
	if !onlineCheck {
		return nil
	}

	online, err := a.m.users.IsOnline(ctx, p.Name())
	if err != nil {
		return fault.ErrInternal.WithCause(err)
	}
	if !online {
		return fault.ErrSessionExpired
	}
	return nil
}
