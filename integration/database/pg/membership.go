package pg

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/rpcgate/core/auth"
	"github.com/dmitrymomot/rpcgate/core/fault"
	"github.com/dmitrymomot/rpcgate/pkg/membership"
	"github.com/dmitrymomot/rpcgate/pkg/password"
)

const (
	usersTable     = "rpc_users"
	rolesTable     = "rpc_roles"
	userRolesTable = "rpc_user_roles"
)

var userColumns = []string{
	"id",
	"name",
	"email",
	"first_name",
	"last_name",
	"joined_at",
	"last_login_at",
	"last_login_ip",
	"last_activity_at",
	"locked_out",
	"locked_out_at",
	"locked_out_message",
	"auth_token",
	"builtin",
	"password_hash",
}

// MembershipStore keeps users and roles in PostgreSQL. It has the same
// semantics as membership.Store and is safe for concurrent use.
type MembershipStore struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
	hasher  *password.Hasher
	cfg     membership.Config
	now     func() time.Time
}

// StoreOption configures a MembershipStore.
type StoreOption func(*MembershipStore)

// WithHasher sets the password hasher.
func WithHasher(h *password.Hasher) StoreOption {
	return func(s *MembershipStore) {
		s.hasher = h
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *MembershipStore) {
		s.now = now
	}
}

// NewMembershipStore creates a store over pool. The tables must exist; see Migrate.
func NewMembershipStore(pool *pgxpool.Pool, cfg membership.Config, opts ...StoreOption) (*MembershipStore, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	s := &MembershipStore{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
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
		s.cfg.OnlineWindow = membership.DefaultConfig().OnlineWindow
	}
	return s, nil
}

// Create adds a user. See membership.Store.Create for the error contract.
func (s *MembershipStore) Create(ctx context.Context, nu membership.NewUser) (*auth.User, error) {
	if err := nu.Validate(); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(nu.Password)
	if err != nil {
		return nil, fault.ErrInternal.WithCause(err)
	}

	user := &auth.User{
		Name:      nu.Name,
		Email:     nu.Email,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		JoinedAt:  s.now().UTC(),
		Builtin:   nu.Builtin,
	}

	err = InTx(ctx, s.pool, func(ctx context.Context) error {
		existing, _, err := s.find(ctx, nu.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return fault.ErrUserAlreadyRegistered
		}
		if s.cfg.RequireUniqueEmail {
			taken, err := s.emailTaken(ctx, nu.Email, "")
			if err != nil {
				return err
			}
			if taken {
				return fault.ErrEmailAlreadyRegistered
			}
		}

		stmt, args, err := s.builder.Insert(usersTable).
			Columns("name", "email", "first_name", "last_name", "password_hash", "joined_at", "builtin").
			Values(user.Name, user.Email, user.FirstName, user.LastName, hash, user.JoinedAt, user.Builtin).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert user sql: %w", err)
		}
		if err := executorFrom(ctx, s.pool).QueryRow(ctx, stmt, args...).Scan(&user.ID); err != nil {
			if IsDuplicateKeyError(err) {
				return fault.ErrUserAlreadyRegistered
			}
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user and its role memberships. It reports whether the user existed.
func (s *MembershipStore) Delete(ctx context.Context, name string) (bool, error) {
	stmt, args, err := s.builder.Delete(usersTable).Where(squirrel.Eq{"name": name}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete user sql: %w", err)
	}
	tag, err := executorFrom(ctx, s.pool).Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ValidateCredentials implements auth.UserStore.
func (s *MembershipStore) ValidateCredentials(ctx context.Context, name, pass string) (bool, error) {
	user, hash, err := s.find(ctx, name)
	if err != nil || user == nil || user.LockedOut {
		return false, err
	}

	valid, err := s.hasher.Verify(pass, hash)
	if err != nil || !valid {
		return false, err
	}
	if err := s.Touch(ctx, name); err != nil {
		return false, err
	}
	return true, nil
}

// FindByName implements auth.UserStore.
func (s *MembershipStore) FindByName(ctx context.Context, name string) (*auth.User, error) {
	user, _, err := s.find(ctx, name)
	return user, err
}

// Save implements auth.UserStore. Only the profile, login, activity and token
// fields are updated.
func (s *MembershipStore) Save(ctx context.Context, u *auth.User) error {
	if u == nil {
		return fault.ErrInvalidArgument.WithMessage("User is required.")
	}
	if err := membership.ValidateProfile(u.FirstName, u.LastName); err != nil {
		return err
	}

	return s.update(ctx, u.Name, map[string]any{
		"first_name":       u.FirstName,
		"last_name":        u.LastName,
		"last_activity_at": nullTime(u.LastActivityAt),
		"last_login_ip":    u.LastLoginIP,
		"last_login_at":    nullTime(u.LastLoginAt),
		"auth_token":       u.AuthToken,
	})
}

// CurrentAuthToken implements auth.UserStore.
func (s *MembershipStore) CurrentAuthToken(ctx context.Context, name string) (string, error) {
	stmt, args, err := s.builder.Select("auth_token").From(usersTable).Where(squirrel.Eq{"name": name}).ToSql()
	if err != nil {
		return "", fmt.Errorf("build select token sql: %w", err)
	}

	var tok string
	if err := executorFrom(ctx, s.pool).QueryRow(ctx, stmt, args...).Scan(&tok); err != nil {
		if IsNotFoundError(err) {
			return "", fault.ErrUserNotFound
		}
		return "", fmt.Errorf("select auth token: %w", err)
	}
	return tok, nil
}

// IsOnline implements auth.UserStore.
func (s *MembershipStore) IsOnline(ctx context.Context, name string) (bool, error) {
	user, err := s.FindByName(ctx, name)
	if err != nil || user == nil {
		return false, err
	}
	return membership.Online(*user, s.cfg.OnlineWindow, s.now()), nil
}

// Touch implements auth.ActivityTracker.
func (s *MembershipStore) Touch(ctx context.Context, name string) error {
	return s.update(ctx, name, map[string]any{"last_activity_at": s.now().UTC()})
}

// CountOnline returns the number of users currently online.
func (s *MembershipStore) CountOnline(ctx context.Context) (int, error) {
	stmt, args, err := s.builder.Select("count(*)").From(usersTable).
		Where(squirrel.Eq{"locked_out": false}).
		Where(squirrel.NotEq{"auth_token": ""}).
		Where(squirrel.GtOrEq{"last_activity_at": s.now().Add(-s.cfg.OnlineWindow).UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count online sql: %w", err)
	}

	var n int
	if err := executorFrom(ctx, s.pool).QueryRow(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count online users: %w", err)
	}
	return n, nil
}

// UpdateProfile changes the user's e-mail and names.
func (s *MembershipStore) UpdateProfile(ctx context.Context, name, email, firstName, lastName string) error {
	if err := membership.ValidateEmail(email); err != nil {
		return err
	}
	if err := membership.ValidateProfile(firstName, lastName); err != nil {
		return err
	}

	return InTx(ctx, s.pool, func(ctx context.Context) error {
		if s.cfg.RequireUniqueEmail {
			taken, err := s.emailTaken(ctx, email, name)
			if err != nil {
				return err
			}
			if taken {
				return fault.ErrEmailAlreadyRegistered
			}
		}
		return s.update(ctx, name, map[string]any{
			"email":      email,
			"first_name": firstName,
			"last_name":  lastName,
		})
	})
}

// Lock prevents the user from validating credentials.
func (s *MembershipStore) Lock(ctx context.Context, name, reason string) error {
	if len(reason) > membership.MaxLockReason {
		return fault.ErrInvalidArgument.WithMessagef("Lock reason must be at most %d characters.", membership.MaxLockReason)
	}
	return s.update(ctx, name, map[string]any{
		"locked_out":         true,
		"locked_out_at":      s.now().UTC(),
		"locked_out_message": reason,
	})
}

// Unlock clears a lock set by Lock.
func (s *MembershipStore) Unlock(ctx context.Context, name string) error {
	return s.update(ctx, name, map[string]any{
		"locked_out":         false,
		"locked_out_message": "",
	})
}

// CreateRole adds a role. Creating an existing role fails with fault.ErrInvalidOperation.
func (s *MembershipStore) CreateRole(ctx context.Context, role membership.Role) error {
	if role.Name == "" {
		return fault.ErrInvalidArgument.WithMessage("Role name is required.")
	}

	stmt, args, err := s.builder.Insert(rolesTable).
		Columns("name", "description", "builtin").
		Values(role.Name, role.Description, role.Builtin).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert role sql: %w", err)
	}
	if _, err := executorFrom(ctx, s.pool).Exec(ctx, stmt, args...); err != nil {
		if IsDuplicateKeyError(err) {
			return fault.ErrInvalidOperation.WithMessagef("Role '%s' already exists.", role.Name)
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

// AddUserToRoles grants roles to a user. Unknown users or roles fail.
func (s *MembershipStore) AddUserToRoles(ctx context.Context, name string, roles ...string) error {
	if len(roles) == 0 {
		return nil
	}

	return InTx(ctx, s.pool, func(ctx context.Context) error {
		user, _, err := s.find(ctx, name)
		if err != nil {
			return err
		}
		if user == nil {
			return fault.ErrUserNotFound
		}

		stmt, args, err := s.builder.Select("name").From(rolesTable).Where(squirrel.Eq{"name": roles}).ToSql()
		if err != nil {
			return fmt.Errorf("build select roles sql: %w", err)
		}
		known, err := s.queryStrings(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("select roles: %w", err)
		}
		for _, role := range roles {
			if !slices.Contains(known, role) {
				return fault.ErrInvalidArgument.WithMessagef("Role '%s' does not exist.", role)
			}
		}

		insert := s.builder.Insert(userRolesTable).Columns("user_name", "role_name").Suffix("ON CONFLICT DO NOTHING")
		for _, role := range roles {
			insert = insert.Values(name, role)
		}
		stmt, args, err = insert.ToSql()
		if err != nil {
			return fmt.Errorf("build insert user roles sql: %w", err)
		}
		if _, err := executorFrom(ctx, s.pool).Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert user roles: %w", err)
		}
		return nil
	})
}

// RemoveUserFromRoles revokes roles from a user.
func (s *MembershipStore) RemoveUserFromRoles(ctx context.Context, name string, roles ...string) error {
	if len(roles) == 0 {
		return nil
	}
	stmt, args, err := s.builder.Delete(userRolesTable).
		Where(squirrel.Eq{"user_name": name, "role_name": roles}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete user roles sql: %w", err)
	}
	if _, err := executorFrom(ctx, s.pool).Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete user roles: %w", err)
	}
	return nil
}

// RolesForUser implements auth.RoleStore. Names are sorted.
func (s *MembershipStore) RolesForUser(ctx context.Context, name string) ([]string, error) {
	stmt, args, err := s.builder.Select("role_name").From(userRolesTable).
		Where(squirrel.Eq{"user_name": name}).
		OrderBy("role_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user roles sql: %w", err)
	}
	roles, err := s.queryStrings(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select user roles: %w", err)
	}
	return roles, nil
}

// find returns the user and its password hash, or a nil user when absent.
func (s *MembershipStore) find(ctx context.Context, name string) (*auth.User, string, error) {
	stmt, args, err := s.builder.Select(userColumns...).From(usersTable).Where(squirrel.Eq{"name": name}).ToSql()
	if err != nil {
		return nil, "", fmt.Errorf("build select user sql: %w", err)
	}

	var (
		u                                  auth.User
		hash                               string
		lastLogin, lastActivity, lockedOut *time.Time
	)
	err = executorFrom(ctx, s.pool).QueryRow(ctx, stmt, args...).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.JoinedAt,
		&lastLogin,
		&u.LastLoginIP,
		&lastActivity,
		&u.LockedOut,
		&lockedOut,
		&u.LockedOutMessage,
		&u.AuthToken,
		&u.Builtin,
		&hash,
	)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("select user: %w", err)
	}
	u.LastLoginAt = derefTime(lastLogin)
	u.LastActivityAt = derefTime(lastActivity)
	u.LockedOutAt = derefTime(lockedOut)
	return &u, hash, nil
}

// update sets columns on the named user and fails with fault.ErrUserNotFound
// when no row matched.
func (s *MembershipStore) update(ctx context.Context, name string, set map[string]any) error {
	stmt, args, err := s.builder.Update(usersTable).SetMap(set).Where(squirrel.Eq{"name": name}).ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}
	tag, err := executorFrom(ctx, s.pool).Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fault.ErrUserNotFound
	}
	return nil
}

// emailTaken reports whether another user than except uses email.
func (s *MembershipStore) emailTaken(ctx context.Context, email, except string) (bool, error) {
	q := s.builder.Select("1").From(usersTable).
		Where(squirrel.Expr("lower(email) = ?", strings.ToLower(email))).
		Limit(1)
	if except != "" {
		q = q.Where(squirrel.NotEq{"name": except})
	}
	stmt, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build select email sql: %w", err)
	}

	var one int
	err = executorFrom(ctx, s.pool).QueryRow(ctx, stmt, args...).Scan(&one)
	switch {
	case IsNotFoundError(err):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("select email: %w", err)
	}
	return true, nil
}

func (s *MembershipStore) queryStrings(ctx context.Context, stmt string, args ...any) ([]string, error) {
	rows, err := executorFrom(ctx, s.pool).Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

var (
	_ auth.UserStore       = (*MembershipStore)(nil)
	_ auth.RoleStore       = (*MembershipStore)(nil)
	_ auth.ActivityTracker = (*MembershipStore)(nil)
)
