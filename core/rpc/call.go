package rpc

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/rpcgate/core/auth"
	"github.com/dmitrymomot/rpcgate/core/fault"
	"github.com/dmitrymomot/rpcgate/core/session"
	"github.com/dmitrymomot/rpcgate/pkg/token"
)

// Call is the per-request context handed to every method.
type Call struct {
	ctx      context.Context
	sess     *session.Session
	auth     *auth.Authenticator
	cfg      Config
	class    string
	method   string
	remoteIP string
	logger   *slog.Logger
}

// Context returns the request context.
func (c *Call) Context() context.Context { return c.ctx }

// Session returns the request session.
func (c *Call) Session() *session.Session { return c.sess }

// Auth returns the request authenticator, nil when the gateway has no auth manager.
func (c *Call) Auth() *auth.Authenticator { return c.auth }

// Principal returns a fresh snapshot of the caller. Without an auth manager
// every caller is anonymous.
func (c *Call) Principal() (auth.Principal, error) {
	if c.auth == nil {
		return auth.Principal{}, nil
	}
	return c.auth.Principal(c.ctx)
}

// Info returns the class and method being invoked.
func (c *Call) Info() (class, method string) { return c.class, c.method }

// RemoteIP returns the client address the session is pinned to.
func (c *Call) RemoteIP() string { return c.remoteIP }

// Rotation returns the gateway's token rotation policy.
func (c *Call) Rotation() Rotation { return c.cfg.Rotation }

// Logger returns a logger annotated with the call.
func (c *Call) Logger() *slog.Logger { return c.logger }

// RotateToken issues a new RPC token now. It is only valid with manual
// rotation; the new token is returned in this call's response.
func (c *Call) RotateToken() error {
	if c.cfg.Rotation != RotationManual {
		c.logger.ErrorContext(c.ctx, "manual token rotation attempted in auto mode")
		return fault.ErrInvalidOperation.WithMessage("The current setting for RPC does not allow manual changes to the RPC token.")
	}
	tok, err := token.Random()
	if err != nil {
		return fault.ErrInternal.WithCause(err)
	}
	return c.sess.Set(c.ctx, c.cfg.TokenSessionKey, tok)
}

// RequireAuthenticatedUser is a shorthand for Auth().RequireAuthenticatedUser.
func (c *Call) RequireAuthenticatedUser(onlineCheck bool) error {
	if c.auth == nil {
		return fault.ErrAccessDenied.WithMessage("You must be authenticated to perform this operation.")
	}
	return c.auth.RequireAuthenticatedUser(c.ctx, onlineCheck)
}

// RequireRole is a shorthand for Auth().RequireRole.
func (c *Call) RequireRole(role string, builtinSuffice, onlineCheck bool) error {
	if c.auth == nil {
		return fault.ErrAccessDenied.WithMessage("You must be authenticated to perform this operation.")
	}
	return c.auth.RequireRole(c.ctx, role, builtinSuffice, onlineCheck)
}
