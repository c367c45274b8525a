// Package pg connects to PostgreSQL and provides a membership store on it.
//
// Connect builds a pgx pool from Config and pings it with retries.
// MembershipStore implements auth.UserStore, auth.RoleStore and
// auth.ActivityTracker with the same rules as the in-memory membership.Store:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, log); err != nil {
//		return err
//	}
//	users, err := pg.NewMembershipStore(pool, membership.DefaultConfig())
//
// Migrate applies the embedded goose migrations that create the rpc_users,
// rpc_roles and rpc_user_roles tables.
//
// Queries run inside the transaction carried by the context, if any; see
// WithTx and InTx.
package pg
