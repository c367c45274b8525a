// Package config loads environment variables into typed structs using
// caarlos0/env. A .env file in the working directory is read once, if present.
//
// Load caches one value per configuration type, so every package asking for
// the same type sees the same settings:
//
//	var cfg rpc.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// MustLoad panics instead of returning an error and suits program startup.
// Parse skips the cache, which keeps tests that call t.Setenv independent.
//
// Nested structs are parsed recursively; use envPrefix to namespace a
// reusable block:
//
//	type Config struct {
//		Session session.Config
//		SignIn  ratelimiter.Config `envPrefix:"SIGNIN_"`
//	}
package config
