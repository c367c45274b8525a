package membership_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rpcgate/core/fault"
	"github.com/dmitrymomot/rpcgate/pkg/membership"
	"github.com/dmitrymomot/rpcgate/pkg/password"
)

func cheapHasher() *password.Hasher {
	return password.New(password.Config{Memory: 1024, Iterations: 1, Parallelism: 1})
}

func newStore(opts ...membership.Option) *membership.Store {
	return membership.New(append([]membership.Option{membership.WithHasher(cheapHasher())}, opts...)...)
}

func alice() membership.NewUser {
	return membership.NewUser{
		Name:      "alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Liddell",
		Password:  "wonderland",
	}
}

func TestStore_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates user", func(t *testing.T) {
		t.Parallel()
		s := newStore()
		u, err := s.Create(ctx, alice())
		require.NoError(t, err)
		assert.Equal(t, int64(1), u.ID)
		assert.Equal(t, "alice", u.Name)
		assert.False(t, u.JoinedAt.IsZero())
		assert.Empty(t, u.AuthToken)
	})

	t.Run("duplicate name", func(t *testing.T) {
		t.Parallel()
		s := newStore()
		_, err := s.Create(ctx, alice())
		require.NoError(t, err)

		dup := alice()
		dup.Email = "other@example.com"
		_, err = s.Create(ctx, dup)
		assert.ErrorIs(t, err, fault.ErrUserAlreadyRegistered)
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()
		s := newStore()
		_, err := s.Create(ctx, alice())
		require.NoError(t, err)

		dup := alice()
		dup.Name = "alice2"
		dup.Email = "ALICE@example.com"
		_, err = s.Create(ctx, dup)
		assert.ErrorIs(t, err, fault.ErrEmailAlreadyRegistered)
	})

	t.Run("duplicate email allowed when not unique", func(t *testing.T) {
		t.Parallel()
		s := newStore(membership.WithUniqueEmail(false))
		_, err := s.Create(ctx, alice())
		require.NoError(t, err)

		dup := alice()
		dup.Name = "alice2"
		_, err = s.Create(ctx, dup)
		assert.NoError(t, err)
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()
		s := newStore()
		cases := map[string]func(*membership.NewUser){
			"empty name":     func(u *membership.NewUser) { u.Name = "" },
			"long name":      func(u *membership.NewUser) { u.Name = "abcdefghijklmnopqrstu" },
			"padded name":    func(u *membership.NewUser) { u.Name = " alice" },
			"bad email":      func(u *membership.NewUser) { u.Email = "not-an-email" },
			"empty password": func(u *membership.NewUser) { u.Password = "" },
		}
		for name, mutate := range cases {
			u := alice()
			mutate(&u)
			_, err := s.Create(ctx, u)
			assert.ErrorIs(t, err, fault.ErrInvalidArgument, name)
		}
	})
}

func TestStore_Credentials(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newStore(membership.WithClock(func() time.Time { return now }))
	_, err := s.Create(ctx, alice())
	require.NoError(t, err)

	ok, err := s.ValidateCredentials(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ValidateCredentials(ctx, "nobody", "wonderland")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ValidateCredentials(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.True(t, ok)

	u, err := s.FindByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, now, u.LastActivityAt)

	require.NoError(t, s.Lock(ctx, "alice", "too many attempts"))
	ok, err = s.ValidateCredentials(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Unlock(ctx, "alice"))
	ok, err = s.ValidateCredentials(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_AuthTokenAndOnline(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newStore(
		membership.WithClock(func() time.Time { return now }),
		membership.WithOnlineWindow(10*time.Minute),
	)
	_, err := s.Create(ctx, alice())
	require.NoError(t, err)

	tok, err := s.CurrentAuthToken(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, tok)

	_, err = s.CurrentAuthToken(ctx, "nobody")
	assert.ErrorIs(t, err, fault.ErrUserNotFound)

	u, err := s.FindByName(ctx, "alice")
	require.NoError(t, err)
	u.AuthToken = "tok"
	require.NoError(t, s.Save(ctx, u))
	require.NoError(t, s.Touch(ctx, "alice"))

	online, err := s.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, online)

	n, err := s.CountOnline(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	now = now.Add(11 * time.Minute)
	online, err = s.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, online)
}

func TestStore_FindReturnsCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore()
	_, err := s.Create(ctx, alice())
	require.NoError(t, err)

	u, err := s.FindByName(ctx, "alice")
	require.NoError(t, err)
	u.AuthToken = "mutated"

	tok, err := s.CurrentAuthToken(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, tok)

	missing, err := s.FindByName(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_Profile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore()
	_, err := s.Create(ctx, alice())
	require.NoError(t, err)
	_, err = s.Create(ctx, membership.NewUser{Name: "bob", Email: "bob@example.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateProfile(ctx, "alice", "al@example.com", "Al", "L"))
	u, err := s.FindByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "al@example.com", u.Email)
	assert.Equal(t, "Al", u.FirstName)
	assert.Equal(t, "L", u.LastName)

	// Keeping one's own address is not a conflict.
	assert.NoError(t, s.UpdateProfile(ctx, "alice", "al@example.com", "Al", "L"))

	assert.ErrorIs(t, s.UpdateProfile(ctx, "alice", "bob@example.com", "a", "b"), fault.ErrEmailAlreadyRegistered)
	assert.ErrorIs(t, s.UpdateProfile(ctx, "nobody", "n@example.com", "a", "b"), fault.ErrUserNotFound)
	assert.ErrorIs(t, s.UpdateProfile(ctx, "alice", "bad", "a", "b"), fault.ErrInvalidArgument)
	assert.ErrorIs(t, s.UpdateProfile(ctx, "alice", "al@example.com", "a", "this last name is definitely far too long"), fault.ErrInvalidArgument)
}

func TestStore_Roles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore()
	_, err := s.Create(ctx, alice())
	require.NoError(t, err)

	require.NoError(t, s.CreateRole(ctx, membership.Role{Name: "Editors"}))
	require.NoError(t, s.CreateRole(ctx, membership.Role{Name: "Administrators", Builtin: true}))
	assert.ErrorIs(t, s.CreateRole(ctx, membership.Role{Name: "Editors"}), fault.ErrInvalidOperation)

	require.NoError(t, s.AddUserToRoles(ctx, "alice", "Editors", "Administrators"))
	assert.ErrorIs(t, s.AddUserToRoles(ctx, "alice", "Ghosts"), fault.ErrInvalidArgument)
	assert.ErrorIs(t, s.AddUserToRoles(ctx, "nobody", "Editors"), fault.ErrUserNotFound)

	roles, err := s.RolesForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Administrators", "Editors"}, roles)

	require.NoError(t, s.RemoveUserFromRoles(ctx, "alice", "Editors"))
	roles, err = s.RolesForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Administrators"}, roles)

	deleted, err := s.Delete(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, deleted)
	roles, err = s.RolesForUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, roles)
}
