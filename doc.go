// Package rpcgate is an authenticated JSON-RPC gateway for browser clients.
//
// A browser posts one call per request to a single endpoint. The gateway
// binds each call to a server-side session and checks a rotating anti-CSRF
// token that must match in the session, a cookie and the request body. It pins
// the session to the client address and only dispatches methods of
// registered, whitelisted classes. Every outcome is an envelope with HTTP
// status 200.
//
// # Packages
//
//	github.com/dmitrymomot/rpcgate/core/rpc       - Gateway, class registry, envelopes
//	github.com/dmitrymomot/rpcgate/core/session   - Session lifecycle with integrity token
//	github.com/dmitrymomot/rpcgate/core/auth      - Sign-in, sign-out, principal and role checks
//	github.com/dmitrymomot/rpcgate/core/fault     - Error taxonomy shared with clients
//	github.com/dmitrymomot/rpcgate/core/cookie    - Cookie manager with optional HMAC signing
//	github.com/dmitrymomot/rpcgate/core/config    - Environment loading into typed structs
//	github.com/dmitrymomot/rpcgate/core/logger    - slog setup and attribute helpers
//	github.com/dmitrymomot/rpcgate/core/health    - Liveness and readiness handlers
//	github.com/dmitrymomot/rpcgate/core/server    - HTTP server with graceful shutdown
//	github.com/dmitrymomot/rpcgate/middleware     - Request id, access log, security headers
//
//	github.com/dmitrymomot/rpcgate/pkg/membership  - In-memory user and role store
//	github.com/dmitrymomot/rpcgate/pkg/password    - Argon2id password hashing
//	github.com/dmitrymomot/rpcgate/pkg/token       - Random tokens and one-way hashes
//	github.com/dmitrymomot/rpcgate/pkg/clientip    - Client address extraction
//	github.com/dmitrymomot/rpcgate/pkg/ratelimiter - Token bucket rate limiting
//
//	github.com/dmitrymomot/rpcgate/integration/database/pg    - PostgreSQL membership store
//	github.com/dmitrymomot/rpcgate/integration/database/redis - Redis session backend
//
//	github.com/dmitrymomot/rpcgate/app/demo - Runnable gateway serving the UserRpc class
//	github.com/dmitrymomot/rpcgate/cmd/demo - Its command
//
// # Example
//
//	users := membership.New()
//	sessions, _ := session.NewStore(session.NewMemoryBackend(), nil)
//	authn, _ := auth.NewManager(users, users)
//
//	registry := rpc.NewRegistry(log)
//	registry.Register(rpc.NewClass[Greeter]("Greeter", nil).
//		Method("hello", (*Greeter).Hello))
//	registry.Allow("Greeter")
//
//	gw, _ := rpc.New(registry, sessions, rpc.WithAuth(authn), rpc.WithLogger(log))
//	http.Handle("/rpc", gw)
package rpcgate
