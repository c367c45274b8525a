package membership

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/rpcgate/core/auth"
	"github.com/dmitrymomot/rpcgate/core/fault"
	"github.com/dmitrymomot/rpcgate/pkg/password"
)

type record struct {
	user auth.User
	hash string
}

// Role is a named group of users.
type Role struct {
	Name        string
	Description string
	Builtin     bool
}

// Store is an in-memory user and role store. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*record
	roles   map[string]Role
	members map[string]map[string]struct{} // user name -> role names
	nextID  int64

	hasher *password.Hasher
	cfg    Config
	now    func() time.Time
}

// New creates an empty store.
func New(opts ...Option) *Store {
	return NewFromConfig(DefaultConfig(), opts...)
}

// NewFromConfig creates an empty store from configuration. Options override config.
func NewFromConfig(cfg Config, opts ...Option) *Store {
	s := &Store{
		users:   make(map[string]*record),
		roles:   make(map[string]Role),
		members: make(map[string]map[string]struct{}),
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hasher == nil {
		s.hasher = password.New(password.DefaultConfig())
	}
	if s.cfg.OnlineWindow <= 0 {
		s.cfg.OnlineWindow = DefaultConfig().OnlineWindow
	}
	return s
}

// Create adds a user. Duplicate names fail with fault.ErrUserAlreadyRegistered;
// duplicate e-mails fail with fault.ErrEmailAlreadyRegistered when unique
// e-mails are required.
func (s *Store) Create(_ context.Context, nu NewUser) (*auth.User, error) {
	if err := nu.Validate(); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(nu.Password)
	if err != nil {
		return nil, fault.ErrInternal.WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[nu.Name]; ok {
		return nil, fault.ErrUserAlreadyRegistered
	}
	if s.cfg.RequireUniqueEmail {
		for _, r := range s.users {
			if strings.EqualFold(r.user.Email, nu.Email) {
				return nil, fault.ErrEmailAlreadyRegistered
			}
		}
	}

	s.nextID++
	r := &record{
		user: auth.User{
			ID:        s.nextID,
			Name:      nu.Name,
			Email:     nu.Email,
			FirstName: nu.FirstName,
			LastName:  nu.LastName,
			JoinedAt:  s.now(),
			Builtin:   nu.Builtin,
		},
		hash: hash,
	}
	s.users[nu.Name] = r
	return r.user.Clone(), nil
}

// Delete removes a user and its role memberships. It reports whether the user existed.
func (s *Store) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.users[name]
	delete(s.users, name)
	delete(s.members, name)
	return ok, nil
}

// ValidateCredentials implements auth.UserStore. Locked users never validate.
// A successful validation refreshes the last activity time.
func (s *Store) ValidateCredentials(_ context.Context, name, pass string) (bool, error) {
	s.mu.RLock()
	r, ok := s.users[name]
	var hash string
	var locked bool
	if ok {
		hash, locked = r.hash, r.user.LockedOut
	}
	s.mu.RUnlock()

	if !ok || locked {
		return false, nil
	}

	valid, err := s.hasher.Verify(pass, hash)
	if err != nil || !valid {
		return false, err
	}

	s.mu.Lock()
	if r, ok := s.users[name]; ok {
		r.user.LastActivityAt = s.now()
	}
	s.mu.Unlock()
	return true, nil
}

// FindByName implements auth.UserStore.
func (s *Store) FindByName(_ context.Context, name string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.users[name]
	if !ok {
		return nil, nil
	}
	return r.user.Clone(), nil
}

// Save implements auth.UserStore. Only the profile, login, activity and token
// fields are updated.
func (s *Store) Save(_ context.Context, u *auth.User) error {
	if u == nil {
		return fault.ErrInvalidArgument.WithMessage("User is required.")
	}
	if err := ValidateProfile(u.FirstName, u.LastName); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.users[u.Name]
	if !ok {
		return fault.ErrUserNotFound
	}
	r.user.FirstName = u.FirstName
	r.user.LastName = u.LastName
	r.user.LastActivityAt = u.LastActivityAt
	r.user.LastLoginIP = u.LastLoginIP
	r.user.LastLoginAt = u.LastLoginAt
	r.user.AuthToken = u.AuthToken
	return nil
}

// CurrentAuthToken implements auth.UserStore.
func (s *Store) CurrentAuthToken(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.users[name]
	if !ok {
		return "", fault.ErrUserNotFound
	}
	return r.user.AuthToken, nil
}

// IsOnline implements auth.UserStore. A user is online when unlocked, signed
// in and active within the online window.
func (s *Store) IsOnline(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.users[name]
	if !ok {
		return false, nil
	}
	return s.online(r.user), nil
}

// Touch implements auth.ActivityTracker.
func (s *Store) Touch(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.users[name]
	if !ok {
		return fault.ErrUserNotFound
	}
	r.user.LastActivityAt = s.now()
	return nil
}

// CountOnline returns the number of users currently online.
func (s *Store) CountOnline(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.users {
		if s.online(r.user) {
			n++
		}
	}
	return n, nil
}

func (s *Store) online(u auth.User) bool {
	return Online(u, s.cfg.OnlineWindow, s.now())
}

// Online reports whether u counts as online at now: unlocked, signed in and
// active within window.
func Online(u auth.User, window time.Duration, now time.Time) bool {
	if u.LockedOut || u.AuthToken == "" || u.LastActivityAt.IsZero() {
		return false
	}
	return !u.LastActivityAt.Add(window).Before(now)
}

// UpdateProfile changes the user's e-mail and names. A changed e-mail must be
// unused by other users when unique e-mails are required.
func (s *Store) UpdateProfile(_ context.Context, name, email, firstName, lastName string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if err := ValidateProfile(firstName, lastName); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.users[name]
	if !ok {
		return fault.ErrUserNotFound
	}
	if s.cfg.RequireUniqueEmail {
		for other, o := range s.users {
			if other != name && strings.EqualFold(o.user.Email, email) {
				return fault.ErrEmailAlreadyRegistered
			}
		}
	}
	r.user.Email = email
	r.user.FirstName, r.user.LastName = firstName, lastName
	return nil
}

// Lock prevents the user from validating credentials.
func (s *Store) Lock(_ context.Context, name, reason string) error {
	if len(reason) > MaxLockReason {
		return fault.ErrInvalidArgument.WithMessagef("Lock reason must be at most %d characters.", MaxLockReason)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.users[name]
	if !ok {
		return fault.ErrUserNotFound
	}
	r.user.LockedOut = true
	r.user.LockedOutAt = s.now()
	r.user.LockedOutMessage = reason
	return nil
}

// Unlock clears a lock set by Lock.
func (s *Store) Unlock(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.users[name]
	if !ok {
		return fault.ErrUserNotFound
	}
	r.user.LockedOut = false
	r.user.LockedOutMessage = ""
	return nil
}

// CreateRole adds a role. Creating an existing role fails with fault.ErrInvalidOperation.
func (s *Store) CreateRole(_ context.Context, role Role) error {
	if role.Name == "" {
		return fault.ErrInvalidArgument.WithMessage("Role name is required.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[role.Name]; ok {
		return fault.ErrInvalidOperation.WithMessagef("Role '%s' already exists.", role.Name)
	}
	s.roles[role.Name] = role
	return nil
}

// AddUserToRoles grants roles to a user. Unknown users or roles fail.
func (s *Store) AddUserToRoles(_ context.Context, name string, roles ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[name]; !ok {
		return fault.ErrUserNotFound
	}
	for _, role := range roles {
		if _, ok := s.roles[role]; !ok {
			return fault.ErrInvalidArgument.WithMessagef("Role '%s' does not exist.", role)
		}
	}

	set, ok := s.members[name]
	if !ok {
		set = make(map[string]struct{}, len(roles))
		s.members[name] = set
	}
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return nil
}

// RemoveUserFromRoles revokes roles from a user.
func (s *Store) RemoveUserFromRoles(_ context.Context, name string, roles ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, role := range roles {
		delete(s.members[name], role)
	}
	return nil
}

// RolesForUser implements auth.RoleStore. Names are sorted.
func (s *Store) RolesForUser(_ context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles := make([]string, 0, len(s.members[name]))
	for role := range s.members[name] {
		roles = append(roles, role)
	}
	slices.Sort(roles)
	return roles, nil
}

var (
	_ auth.UserStore       = (*Store)(nil)
	_ auth.RoleStore       = (*Store)(nil)
	_ auth.ActivityTracker = (*Store)(nil)
)
