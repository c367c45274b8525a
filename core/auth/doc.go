// Package auth resolves the signed-in identity of a request and enforces
// role-based authorization on top of it.
//
// A Manager is created once with a UserStore and a RoleStore. Every request
// calls Begin with its session to get an Authenticator, which memoises the
// resolved user and roles until the request ends:
//
//	a := manager.Begin(sess, remoteIP)
//
//	if err := a.SignIn(ctx, "alice", "secret"); err != nil { ... }
//	if err := a.RequireRole(ctx, "Editors", false, true); err != nil { ... }
//
//	p, err := a.Principal(ctx)
//	p.Name(), p.IsInRole("Editors")
//
// Sign-in stores a fresh auth token both in the user record and in the
// session, then regenerates the session id. A session is authenticated only
// while its token equals the one persisted for its user, so signing out on
// another device or clearing the token administratively ends every other
// session on its next request.
//
// All failures are fault.Error values: fault.ErrAuthenticationFailed,
// fault.ErrAccessDenied and fault.ErrSessionExpired.
package auth
