package auth

import (
	"log/slog"
	"time"
)

// Config holds authentication configuration.
type Config struct {
	TokenKey          string `env:"AUTH_TOKEN_KEY" envDefault:"__authToken"`
	UserKey           string `env:"AUTH_USER_KEY" envDefault:"__authUserName"`
	AdministratorRole string `env:"AUTH_ADMIN_ROLE" envDefault:"Administrators"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		TokenKey:          "__authToken",
		UserKey:           "__authUserName",
		AdministratorRole: "Administrators",
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithTokenKey sets the session key holding the auth token.
func WithTokenKey(key string) Option {
	return func(m *Manager) {
		m.cfg.TokenKey = key
	}
}

// WithUserKey sets the session key holding the user name.
func WithUserKey(key string) Option {
	return func(m *Manager) {
		m.cfg.UserKey = key
	}
}

// WithAdministratorRole sets the role checked by RequireAdministrator.
func WithAdministratorRole(role string) Option {
	return func(m *Manager) {
		m.cfg.AdministratorRole = role
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithClock sets the time source used for login timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}
