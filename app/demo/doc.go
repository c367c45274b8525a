// Package demo assembles a runnable gateway around the UserRpc class.
//
// UserRpc exposes sign-in, sign-out, registration and profile methods over
// the memory or PostgreSQL membership store, with sessions kept in memory or
// Redis. The HTTP surface is the gateway endpoint plus GET /healthz.
//
//	app, err := demo.NewFromConfig(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer app.Close()
//	return app.Run(ctx)
package demo
