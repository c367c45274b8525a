// Package redis connects to redis and stores gateway sessions in it.
//
// Connect parses a redis:// or rediss:// URL and pings the server with
// retries; Healthcheck wraps a ping for readiness probes.
//
// SessionBackend implements session.Backend, so several gateway processes
// can share sessions:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	backend, err := redis.NewSessionBackendFromConfig(cfg, client)
//	if err != nil {
//		return err
//	}
//	sessions, err := session.NewStore(backend, cookies)
//
// Payloads are JSON. Each save replaces the whole payload and resets the key's
// expiry to the session lifetime.
package redis
