package demo_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rpcgate/app/demo"
	"github.com/dmitrymomot/rpcgate/core/fault"
	"github.com/dmitrymomot/rpcgate/core/logger"
	"github.com/dmitrymomot/rpcgate/core/rpc"
	"github.com/dmitrymomot/rpcgate/pkg/membership"
	"github.com/dmitrymomot/rpcgate/pkg/password"
)

const adminPassword = "admin-secret"

func newApp(t *testing.T, rotation rpc.Rotation, configure ...func(*demo.Config)) (*httptest.Server, *membership.Store) {
	t.Helper()

	users := membership.New(
		membership.WithHasher(password.New(password.Config{Memory: 1024, Iterations: 1, Parallelism: 1})),
	)
	_, err := users.Create(context.Background(), membership.NewUser{
		Name:      "alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Liddell",
		Password:  "wonderland",
	})
	require.NoError(t, err)

	cfg := demo.DefaultConfig()
	cfg.RPC.Rotation = rotation
	cfg.AdminPassword = adminPassword
	for _, fn := range configure {
		fn(&cfg)
	}

	app, err := demo.NewFromConfig(context.Background(), cfg,
		demo.WithLogger(logger.NewNop()),
		demo.WithUsers(users),
	)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return srv, users
}

type browser struct {
	t     *testing.T
	url   string
	http  *http.Client
	token *string
}

func newBrowser(t *testing.T, srv *httptest.Server) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, url: srv.URL + "/rpc", http: &http.Client{Jar: jar}}
}

type envelope struct {
	status int
	fields map[string]json.RawMessage
	token  *string
	err    *rpc.ErrorObject
}

func (b *browser) post(body map[string]any) envelope {
	b.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(b.t, err)

	req, err := http.NewRequest(http.MethodPost, b.url, bytes.NewReader(raw))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "text/json")

	res, err := b.http.Do(req)
	require.NoError(b.t, err)
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	require.NoError(b.t, err)

	env := envelope{status: res.StatusCode}
	require.NoError(b.t, json.Unmarshal(data, &env.fields), string(data))
	if tok := env.fields["token"]; tok != nil && string(tok) != "null" {
		var s string
		require.NoError(b.t, json.Unmarshal(tok, &s))
		env.token = &s
	}
	if e, ok := env.fields["error"]; ok {
		env.err = &rpc.ErrorObject{}
		require.NoError(b.t, json.Unmarshal(e, env.err))
	}
	return env
}

// call sends method with the current token and adopts the response token.
func (b *browser) call(method string, params ...any) envelope {
	b.t.Helper()
	return b.callWith(b.token, method, params...)
}

func (b *browser) callWith(token *string, method string, params ...any) envelope {
	b.t.Helper()
	if params == nil {
		params = []any{}
	}
	body := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params}
	if token != nil {
		body["token"] = *token
	}
	env := b.post(body)
	b.token = env.token
	return env
}

func (b *browser) result(env envelope, v any) {
	b.t.Helper()
	require.Nil(b.t, env.err, "unexpected error: %+v", env.err)
	require.NoError(b.t, json.Unmarshal(env.fields["result"], v))
}

// void asserts a successful call of a method without a return value.
func (b *browser) void(env envelope) {
	b.t.Helper()
	require.Nil(b.t, env.err, "unexpected error: %+v", env.err)
	require.Contains(b.t, env.fields, "result")
	assert.Equal(b.t, "null", string(env.fields["result"]))
}

func TestScenario_AnonymousCurrentUser(t *testing.T) {
	t.Parallel()
	srv, _ := newApp(t, rpc.RotationAuto)
	b := newBrowser(t, srv)

	env := b.post(map[string]any{"jsonrpc": 2.0, "id": 7, "method": "UserRpc.getCurrentUser", "params": []any{}})

	assert.Equal(t, http.StatusOK, env.status)
	assert.JSONEq(t, "7", string(env.fields["id"]))
	assert.JSONEq(t, "2.0", string(env.fields["jsonrpc"]))
	require.NotNil(t, env.token)
	assert.NotEmpty(t, *env.token)
	assert.JSONEq(t, `{"name":"","auth":false}`, string(env.fields["result"]))
	assert.NotContains(t, env.fields, "error")
}

func TestScenario_ProfileAfterSignIn(t *testing.T) {
	t.Parallel()

	wantProfile := demo.Profile{
		UserName:  "alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Liddell",
	}

	t.Run("manual rotation keeps the token", func(t *testing.T) {
		t.Parallel()
		srv, _ := newApp(t, rpc.RotationManual)
		b := newBrowser(t, srv)

		env := b.call("UserRpc.getCurrentUser")
		require.Nil(t, env.err)
		assert.Nil(t, env.token, "no token is issued before a method rotates it")

		env = b.call("UserRpc.signIn", "alice", "wonderland")
		require.Nil(t, env.err)
		require.NotNil(t, env.token)
		issued := *env.token

		var profile demo.Profile
		b.result(b.call("UserRpc.getUserProfile"), &profile)
		assert.Equal(t, wantProfile, profile)
		require.NotNil(t, b.token)
		assert.Equal(t, issued, *b.token)

		b.result(b.callWith(&issued, "UserRpc.getUserProfile"), &profile)
		assert.Equal(t, wantProfile, profile)
	})

	t.Run("auto rotation rejects the previous token", func(t *testing.T) {
		t.Parallel()
		srv, _ := newApp(t, rpc.RotationAuto)
		b := newBrowser(t, srv)

		require.Nil(t, b.call("UserRpc.getCurrentUser").err)
		require.Nil(t, b.call("UserRpc.signIn", "alice", "wonderland").err)

		previous := *b.token
		var profile demo.Profile
		b.result(b.call("UserRpc.getUserProfile"), &profile)
		assert.Equal(t, wantProfile, profile)
		assert.NotEqual(t, previous, *b.token)

		env := b.callWith(&previous, "UserRpc.getUserProfile")
		require.NotNil(t, env.err)
		assert.Equal(t, fault.CodeSessionExpired, env.err.Code)
		assert.Equal(t, http.StatusOK, env.status)
	})
}

func TestScenario_DuplicateRegistration(t *testing.T) {
	t.Parallel()
	srv, _ := newApp(t, rpc.RotationAuto)
	b := newBrowser(t, srv)

	env := b.call("UserRpc.register", "alice", "other@example.com", "Alice", "Again", "pass")

	assert.Equal(t, http.StatusOK, env.status)
	require.NotNil(t, env.err)
	assert.Equal(t, fault.CodeUserAlreadyRegistered, env.err.Code)
	assert.Equal(t, "The user name is already registered.", env.err.Message)
	assert.NotContains(t, env.fields, "result")
}

func TestUserRpc_RegisterAndSignIn(t *testing.T) {
	t.Parallel()
	srv, users := newApp(t, rpc.RotationAuto)
	b := newBrowser(t, srv)

	// userName, email, firstName, lastName, password
	b.void(b.call("UserRpc.register", "bob", "bob@example.com", "Bob", "Builder", "s3cret-pass"))

	user, err := users.FindByName(context.Background(), "bob")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Bob", user.FirstName)
	assert.Equal(t, "Builder", user.LastName)

	env := b.call("UserRpc.signIn", "bob", "wrong")
	require.NotNil(t, env.err)
	assert.Equal(t, fault.CodeAuthenticationFailed, env.err.Code)

	b.void(b.call("UserRpc.signIn", "bob", "s3cret-pass"))

	var current demo.CurrentUser
	b.result(b.call("UserRpc.getCurrentUser"), &current)
	assert.Equal(t, demo.CurrentUser{Name: "bob", Auth: true}, current)

	env = b.call("UserRpc.signOut")
	b.void(env)
	assert.Nil(t, env.token, "the token dies with the session")

	b.result(b.call("UserRpc.getCurrentUser"), &current)
	assert.Equal(t, demo.CurrentUser{}, current)
}

func TestUserRpc_UpdateProfile(t *testing.T) {
	t.Parallel()
	srv, users := newApp(t, rpc.RotationAuto)
	b := newBrowser(t, srv)

	env := b.call("UserRpc.updateUserProfile", "a@example.com", "A", "L")
	require.NotNil(t, env.err)
	assert.Equal(t, fault.CodeAccessDenied, env.err.Code)

	require.Nil(t, b.call("UserRpc.signIn", "alice", "wonderland").err)

	b.void(b.call("UserRpc.updateUserProfile", "alice@wonderland.example", "Alice", "Pleasance"))

	user, err := users.FindByName(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@wonderland.example", user.Email)
	assert.Equal(t, "Pleasance", user.LastName)
}

func TestUserRpc_CountOnlineUsers(t *testing.T) {
	t.Parallel()
	srv, _ := newApp(t, rpc.RotationAuto)

	alice := newBrowser(t, srv)
	require.Nil(t, alice.call("UserRpc.signIn", "alice", "wonderland").err)

	env := alice.call("UserRpc.countOnlineUsers")
	require.NotNil(t, env.err)
	assert.Equal(t, fault.CodeAccessDenied, env.err.Code)

	admin := newBrowser(t, srv)
	require.Nil(t, admin.call("UserRpc.signIn", demo.AdminName, adminPassword).err)

	var n int
	admin.result(admin.call("UserRpc.countOnlineUsers"), &n)
	assert.Equal(t, 2, n)
}

func TestUserRpc_SignInThrottle(t *testing.T) {
	t.Parallel()
	srv, _ := newApp(t, rpc.RotationAuto, func(cfg *demo.Config) {
		cfg.SignIn.Capacity = 2
		cfg.SignIn.RefillInterval = time.Hour
	})
	b := newBrowser(t, srv)

	for range 2 {
		env := b.call("UserRpc.signIn", "alice", "guess")
		require.NotNil(t, env.err)
		assert.Equal(t, "Authentication failed.", env.err.Message)
	}

	env := b.call("UserRpc.signIn", "alice", "wonderland")
	require.NotNil(t, env.err)
	assert.Equal(t, fault.CodeAuthenticationFailed, env.err.Code)
	assert.Contains(t, env.err.Message, "Too many sign-in attempts")
}

func TestUserRpc_UnknownMethod(t *testing.T) {
	t.Parallel()
	srv, _ := newApp(t, rpc.RotationAuto)
	b := newBrowser(t, srv)

	env := b.call("UserRpc.dropTables")
	require.NotNil(t, env.err)
	assert.Equal(t, fault.CodeMethodAccess, env.err.Code)

	env = b.call("Nope.nothing")
	require.NotNil(t, env.err)
	assert.Equal(t, fault.CodeMethodAccess, env.err.Code)
}

func TestApp_Healthz(t *testing.T) {
	t.Parallel()
	srv, _ := newApp(t, rpc.RotationAuto)

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ALIVE", string(body))
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))
}

func TestNewFromConfig_UnknownBackend(t *testing.T) {
	t.Parallel()

	cfg := demo.DefaultConfig()
	cfg.SessionBackend = "etcd"
	_, err := demo.NewFromConfig(context.Background(), cfg, demo.WithLogger(logger.NewNop()))
	assert.ErrorIs(t, err, demo.ErrUnknownBackend)

	cfg = demo.DefaultConfig()
	cfg.UserStore = "ldap"
	_, err = demo.NewFromConfig(context.Background(), cfg, demo.WithLogger(logger.NewNop()))
	assert.ErrorIs(t, err, demo.ErrUnknownBackend)
}

func TestUserRpc_RegisterValidation(t *testing.T) {
	t.Parallel()
	srv, users := newApp(t, rpc.RotationAuto)
	b := newBrowser(t, srv)

	env := b.call("UserRpc.register", "carol", "carol@example.com", "s3cret-pass")
	require.NotNil(t, env.err)
	assert.Equal(t, fault.CodeInvalidArgument, env.err.Code)

	env = b.call("UserRpc.register", "carol", "carol@example.com", "Carol", "Danvers",
		"a-password-well-beyond-thirty-two-characters")
	require.NotNil(t, env.err)
	assert.Equal(t, fault.CodeInvalidArgument, env.err.Code)

	user, err := users.FindByName(context.Background(), "carol")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserRpc_RequireAuth(t *testing.T) {
	t.Parallel()
	srv, _ := newApp(t, rpc.RotationAuto, func(cfg *demo.Config) {
		cfg.RPC.RequireAuth = true
	})
	b := newBrowser(t, srv)

	var current demo.CurrentUser
	b.result(b.call("UserRpc.getCurrentUser"), &current)
	assert.False(t, current.Auth)

	env := b.call("UserRpc.getUserProfile")
	require.NotNil(t, env.err)
	assert.Equal(t, fault.CodeAccessDenied, env.err.Code)

	b.void(b.call("UserRpc.register", "dave", "dave@example.com", "Dave", "Lister", "red-dwarf"))
	b.void(b.call("UserRpc.signIn", "dave", "red-dwarf"))

	var profile demo.Profile
	b.result(b.call("UserRpc.getUserProfile"), &profile)
	assert.Equal(t, "dave", profile.UserName)
}
