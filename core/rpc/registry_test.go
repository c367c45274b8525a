package rpc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rpcgate/core/fault"
	"github.com/dmitrymomot/rpcgate/core/rpc"
)

func TestRegistry_Check(t *testing.T) {
	t.Parallel()

	r := rpc.NewRegistry(nil)
	require.NoError(t, r.Allow("Users", "Orders"))
	require.NoError(t, r.Disallow("Users", "purge", "export"))
	require.NoError(t, r.Disallow("Orders", rpc.Wildcard))

	tests := []struct {
		class, method string
		allowed       bool
	}{
		{"Users", "list", true},
		{"Users", "purge", false},
		{"Users", "export", false},
		{"Users", "_secret", false},
		{"Users", "", false},
		{"Orders", "list", false},
		{"Orders", "addedLater", false},
		{"Unknown", "list", false},
	}
	for _, tt := range tests {
		err := r.Check(tt.class, tt.method)
		if tt.allowed {
			assert.NoError(t, err, "%s.%s", tt.class, tt.method)
		} else {
			assert.ErrorIs(t, err, fault.ErrMethodAccess, "%s.%s", tt.class, tt.method)
		}
	}
}

func TestRegistry_Disallow(t *testing.T) {
	t.Parallel()

	r := rpc.NewRegistry(nil)
	require.NoError(t, r.Allow("Users"))

	err := r.Disallow("Users", rpc.Wildcard, "list")
	assert.ErrorIs(t, err, fault.ErrInvalidArgument)
	assert.NoError(t, r.Check("Users", "list"), "a rejected wildcard changes nothing")

	require.NoError(t, r.Disallow("Users"))
	assert.NoError(t, r.Check("Users", "list"))

	assert.ErrorIs(t, r.Disallow("Users", "bad name"), fault.ErrInvalidArgument)
	assert.ErrorIs(t, r.Disallow("", "list"), fault.ErrInvalidArgument)

	require.NoError(t, r.Disallow("Users", rpc.Wildcard))
	assert.ErrorIs(t, r.Check("Users", "list"), fault.ErrMethodAccess)

	// Allowing again does not lift the wildcard.
	require.NoError(t, r.Allow("Users"))
	assert.ErrorIs(t, r.Check("Users", "list"), fault.ErrMethodAccess)
}

func TestRegistry_Allow(t *testing.T) {
	t.Parallel()

	r := rpc.NewRegistry(nil)
	assert.ErrorIs(t, r.Allow(), fault.ErrInvalidArgument)
	assert.ErrorIs(t, r.Allow("Users.list"), fault.ErrInvalidArgument)
	assert.ErrorIs(t, r.Allow("Us*rs"), fault.ErrInvalidArgument)
}

func TestRegistry_Register(t *testing.T) {
	t.Parallel()

	cls := rpc.NewClass[struct{}]("Users", nil).
		Static("list", func(*rpc.Call, rpc.Args) (any, error) { return nil, nil }).
		Static("getLogger", func(*rpc.Call, rpc.Args) (any, error) { return nil, nil })
	assert.Equal(t, []string{"getLogger", "list"}, cls.Methods())

	r := rpc.NewRegistry(nil)
	require.NoError(t, r.Register(cls))
	assert.ErrorIs(t, r.Register(cls), fault.ErrInvalidArgument)
	assert.ErrorIs(t, r.Register(nil), fault.ErrInvalidArgument)
	assert.ErrorIs(t, r.Register(rpc.NewClass[struct{}]("bad.name", nil)), fault.ErrInvalidArgument)

	require.NoError(t, r.Allow("Users"))
	assert.NoError(t, r.Check("Users", "list"))

	for _, reserved := range []string{
		"getCurrentPrincipal", "requireAuthenticatedUser", "requireRole",
		"requireAdministrator", "logEvent", "getLogger", "setLogger",
	} {
		assert.ErrorIs(t, r.Check("Users", reserved), fault.ErrMethodAccess, reserved)
	}
}

func TestRegistry_RegisterSealsClass(t *testing.T) {
	t.Parallel()

	noop := func(*rpc.Call, rpc.Args) (any, error) { return nil, nil }
	cls := rpc.NewClass[struct{}]("Users", nil).Static("list", noop)

	r := rpc.NewRegistry(nil)
	require.NoError(t, r.Register(cls))

	assert.Panics(t, func() { cls.Static("purge", noop) })
	assert.Panics(t, func() {
		cls.Method("drop", func(*struct{}, *rpc.Call, rpc.Args) (any, error) { return nil, nil })
	})
	assert.Equal(t, []string{"list"}, cls.Methods())
}

func TestRegistry_AllowAnonymous(t *testing.T) {
	t.Parallel()

	r := rpc.NewRegistry(nil)
	assert.ErrorIs(t, r.AllowAnonymous("Users"), fault.ErrInvalidArgument)
	assert.ErrorIs(t, r.AllowAnonymous("Users", "bad name"), fault.ErrInvalidArgument)
	assert.ErrorIs(t, r.AllowAnonymous("", "signIn"), fault.ErrInvalidArgument)
	require.NoError(t, r.AllowAnonymous("Users", "signIn"))

	// The exemption does not bypass the allow-list.
	assert.ErrorIs(t, r.Check("Users", "signIn"), fault.ErrMethodAccess)
}
