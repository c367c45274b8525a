// Package rpc is an authenticated JSON-RPC gateway: the browser posts
// {"jsonrpc":2.0,"id":1,"method":"Class.method","params":[...],"token":"..."}
// to one endpoint and receives {"jsonrpc":2.0,"id":1,"token":"...","result":...}
// or the same envelope with an "error" member. The HTTP status is always 200.
//
// Methods are declared up front as classes and must be both registered and
// allowed:
//
//	users := rpc.NewClass[UserRPC]("UserRpc", newUserRPC).
//		Method("getProfile", (*UserRPC).getProfile).
//		Static("signIn", signIn)
//
//	reg := rpc.NewRegistry(log)
//	_ = reg.Register(users)
//	_ = reg.Allow("UserRpc")
//	_ = reg.Disallow("UserRpc", "internalHelper")
//
//	gw, err := rpc.New(reg, sessions, rpc.WithAuth(authManager))
//	mux.Handle("POST /rpc", gw)
//
// Before dispatch every call passes these checks in order: POST with the
// configured content type, the session's pinned client address, the envelope
// shape and version, and the RPC token, which must match in the session, the
// token cookie and the request body. In auto rotation mode a new token is
// issued on every call, so replaying an older request fails with
// fault.ErrSessionExpired. In manual mode the token only changes when a
// method calls Call.RotateToken.
//
// With rpc.WithRequireAuth every call needs a signed-in user, except methods
// exempted with Registry.AllowAnonymous. Classes are sealed by Register.
//
// Errors returned by methods are reported with their fault code; other errors
// become fault.ErrMethodInvocation and panics become fault.ErrInternal.
package rpc
