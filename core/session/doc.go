// Package session provides a self-validating per-request session store.
//
// A Store is built once with a Backend (in memory or redis) and a cookie
// manager. Each request opens its own Session:
//
//	store, err := session.NewStore(session.NewMemoryBackend(), cookies,
//		session.WithTTL(24*time.Minute),
//	)
//
//	sess := store.Open(w, r)
//	defer sess.Commit(r.Context())
//
//	if err := sess.Set(ctx, "cart", []string{"sku-1"}); err != nil { ... }
//	v, err := sess.Get(ctx, "cart")
//
// The first access starts the session. The Session refuses to adopt a session
// that something else already started, and it stores hash(id) inside the
// payload. Every later access checks that the id is unchanged and that the
// stored hash still matches it. Any violation fails with
// fault.ErrInvalidSessionState.
//
// RegenerateID rotates the id (used after sign-in). If rotation fails the
// session is destroyed and fault.ErrInternal is returned, so no half-rotated
// session survives.
//
// Values must be JSON-serialisable; backends persist them as JSON, so numbers
// come back as float64 and structures as map[string]any.
package session
