package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/rpcgate/core/fault"
	"github.com/dmitrymomot/rpcgate/core/logger"
	"github.com/dmitrymomot/rpcgate/pkg/token"
)

// ErrNilStore is returned when a Manager is built without a user or role store.
var ErrNilStore = errors.New("auth: user and role stores are required")

// Session is the subset of the session store used by authentication.
type Session interface {
	GetString(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) (bool, error)
	RegenerateID(ctx context.Context) error
	Destroy(ctx context.Context) error
}

// Manager holds the process-wide authentication collaborators.
type Manager struct {
	users  UserStore
	roles  RoleStore
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates an authentication manager.
func NewManager(users UserStore, roles RoleStore, opts ...Option) (*Manager, error) {
	return NewManagerFromConfig(DefaultConfig(), users, roles, opts...)
}

// NewManagerFromConfig creates an authentication manager from configuration.
// Options override config.
func NewManagerFromConfig(cfg Config, users UserStore, roles RoleStore, opts ...Option) (*Manager, error) {
	if users == nil || roles == nil {
		return nil, ErrNilStore
	}
	def := DefaultConfig()
	if cfg.TokenKey == "" {
		cfg.TokenKey = def.TokenKey
	}
	if cfg.UserKey == "" {
		cfg.UserKey = def.UserKey
	}
	if cfg.AdministratorRole == "" {
		cfg.AdministratorRole = def.AdministratorRole
	}

	m := &Manager{
		users:  users,
		roles:  roles,
		cfg:    cfg,
		logger: logger.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Begin returns the request-scoped authenticator for sess.
// remoteIP is recorded as the last login address on sign-in.
func (m *Manager) Begin(sess Session, remoteIP string) *Authenticator {
	return &Authenticator{m: m, sess: sess, remoteIP: remoteIP}
}

// Authenticator resolves and changes the signed-in identity of one request.
// The resolved user and roles are memoised until the request ends.
type Authenticator struct {
	m        *Manager
	sess     Session
	remoteIP string

	current     *User
	roles       []string
	rolesLoaded bool
}

// SignIn validates credentials and binds the user to the session.
// The session id is regenerated afterwards.
func (a *Authenticator) SignIn(ctx context.Context, name, password string) error {
	if name == "" || password == "" {
		return fault.ErrInvalidArgument.WithMessage("User name and password are required.")
	}

	current, err := a.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if current != nil {
		return fault.ErrAuthenticationFailed.WithMessage("There is already a user authenticated.")
	}

	log := a.m.logger.With(logger.Component("auth"), logger.UserName(name))

	ok, err := a.m.users.ValidateCredentials(ctx, name, password)
	if err != nil {
		log.ErrorContext(ctx, "credential validation failed", logger.Error(err))
		return fault.ErrAuthenticationFailed.WithCause(err)
	}
	if !ok {
		log.DebugContext(ctx, "invalid credentials")
		return fault.ErrAuthenticationFailed
	}

	user, err := a.m.users.FindByName(ctx, name)
	if err != nil {
		return fault.ErrAuthenticationFailed.WithCause(err)
	}
	if user == nil {
		return fault.ErrAuthenticationFailed
	}

	authToken, err := token.Derive()
	if err != nil {
		return fault.ErrAuthenticationFailed.WithCause(err)
	}
	user.AuthToken = authToken
	user.LastLoginIP = a.remoteIP
	user.LastLoginAt = a.m.now()
	if err := a.m.users.Save(ctx, user); err != nil {
		log.ErrorContext(ctx, "saving auth token failed", logger.Error(err))
		return fault.ErrAuthenticationFailed.WithCause(err)
	}

	if err := a.sess.Set(ctx, a.m.cfg.TokenKey, authToken); err != nil {
		return fault.ErrAuthenticationFailed.WithCause(err)
	}
	if err := a.sess.Set(ctx, a.m.cfg.UserKey, name); err != nil {
		return fault.ErrAuthenticationFailed.WithCause(err)
	}

	a.current = user
	a.roles, a.rolesLoaded = nil, false

	if err := a.sess.RegenerateID(ctx); err != nil {
		a.current = nil
		return err
	}

	log.DebugContext(ctx, "user signed in")
	return nil
}

// SignOut clears the persisted auth token of the current user, if any, and
// destroys the session. Failing to clear the persisted token is logged only.
func (a *Authenticator) SignOut(ctx context.Context) error {
	log := a.m.logger.With(logger.Component("auth"))

	user, err := a.CurrentUser(ctx)
	if err != nil {
		log.DebugContext(ctx, "sign out without a resolvable user", logger.Error(err))
	}
	if user != nil {
		user.AuthToken = ""
		if err := a.m.users.Save(ctx, user); err != nil {
			log.ErrorContext(ctx, "non-fatal error clearing auth token on sign out",
				logger.UserName(user.Name), logger.Error(err))
		}
	}

	a.clear(ctx)
	if err := a.sess.Destroy(ctx); err != nil {
		return err
	}
	log.DebugContext(ctx, "user signed out", logger.UserName(nameOf(user)))
	return nil
}

// CurrentUser returns the signed-in user, or nil for an anonymous caller.
//
// The session's auth token and user name are checked against the user store
// on first use in a request, so signing out elsewhere takes effect on the next
// request. A memoised user that no longer matches the session fails with
// fault.ErrSessionExpired.
func (a *Authenticator) CurrentUser(ctx context.Context) (*User, error) {
	authToken, err := a.sess.GetString(ctx, a.m.cfg.TokenKey)
	if err != nil {
		return nil, err
	}
	name, err := a.sess.GetString(ctx, a.m.cfg.UserKey)
	if err != nil {
		return nil, err
	}

	if a.current != nil {
		if a.current.Name == name && token.Equal(a.current.AuthToken, authToken) {
			return a.current.Clone(), nil
		}
		a.clear(ctx)
		return nil, fault.ErrSessionExpired
	}

	if authToken == "" || name == "" {
		a.clear(ctx)
		return nil, nil
	}

	stored, err := a.m.users.CurrentAuthToken(ctx, name)
	if err != nil {
		a.m.logger.ErrorContext(ctx, "auth token lookup failed",
			logger.Component("auth"), logger.UserName(name), logger.Error(err))
		a.clear(ctx)
		return nil, nil
	}
	if stored == "" || !token.Equal(stored, authToken) {
		a.m.logger.DebugContext(ctx, "auth token no longer valid",
			logger.Component("auth"), logger.UserName(name))
		a.clear(ctx)
		return nil, nil
	}

	if tracker, ok := a.m.users.(ActivityTracker); ok {
		if err := tracker.Touch(ctx, name); err != nil {
			a.m.logger.ErrorContext(ctx, "activity update failed",
				logger.Component("auth"), logger.UserName(name), logger.Error(err))
		}
	}

	user, err := a.m.users.FindByName(ctx, name)
	if err != nil {
		return nil, fault.ErrInternal.WithCause(err)
	}
	if user == nil {
		a.clear(ctx)
		return nil, nil
	}

	a.current = user
	a.roles, a.rolesLoaded = nil, false
	return user.Clone(), nil
}

// CurrentRoles returns the role names of the signed-in user.
func (a *Authenticator) CurrentRoles(ctx context.Context) ([]string, error) {
	user, err := a.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errAuthenticationRequired
	}

	if !a.rolesLoaded {
		roles, err := a.m.roles.RolesForUser(ctx, user.Name)
		if err != nil {
			return nil, fault.ErrInternal.WithCause(err)
		}
		a.roles, a.rolesLoaded = roles, true
	}
	return append([]string(nil), a.roles...), nil
}

// CurrentUserName returns the signed-in user's name or fails with fault.ErrAccessDenied.
func (a *Authenticator) CurrentUserName(ctx context.Context) (string, error) {
	user, err := a.requireUser(ctx)
	if err != nil {
		return "", err
	}
	return user.Name, nil
}

// CurrentUserEmail returns the signed-in user's e-mail or fails with fault.ErrAccessDenied.
func (a *Authenticator) CurrentUserEmail(ctx context.Context) (string, error) {
	user, err := a.requireUser(ctx)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

func (a *Authenticator) requireUser(ctx context.Context) (*User, error) {
	user, err := a.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errAuthenticationRequired
	}
	return user, nil
}

// clear drops the identity keys from the session and the memoised state.
func (a *Authenticator) clear(ctx context.Context) {
	for _, key := range []string{a.m.cfg.TokenKey, a.m.cfg.UserKey} {
		if _, err := a.sess.Remove(ctx, key); err != nil {
			a.m.logger.DebugContext(ctx, "clearing identity key failed",
				logger.Component("auth"), logger.Error(err))
		}
	}
	a.current = nil
	a.roles, a.rolesLoaded = nil, false
}

var errAuthenticationRequired = fault.ErrAccessDenied.WithMessage("You must be authenticated to perform this operation.")

func nameOf(u *User) string {
	if u == nil {
		return ""
	}
	return u.Name
}
