// Package membership provides user and role storage for authentication.
//
// Store keeps everything in memory and is meant for tests, demos and small
// single-process deployments; the Postgres implementation lives in
// integration/database/pg. Both share the validation rules in this package.
//
//	store := membership.New(membership.WithOnlineWindow(15 * time.Minute))
//	user, err := store.Create(ctx, membership.NewUser{
//		Name:     "alice",
//		Email:    "alice@example.com",
//		Password: "secret",
//	})
//
// Passwords are hashed with argon2id (pkg/password). Locked users never pass
// credential validation.
package membership
