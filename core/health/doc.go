// Package health provides HTTP handlers for service health monitoring.
//
// Handlers:
//   - Liveness: the process is running (no dependency checks)
//   - Readiness: all dependencies are available
//
// Usage:
//
//	mux.Handle("GET /health/live", health.Liveness())
//	mux.Handle("GET /health/ready", health.Readiness(log,
//		pg.Healthcheck(pool),
//		redis.Healthcheck(client),
//	))
//
// Dependency checks must follow the func(context.Context) error signature.
// Readiness runs them concurrently and bounds them with a timeout.
package health
