package membership

import (
	"time"

	"github.com/dmitrymomot/rpcgate/pkg/password"
)

// Config holds membership policy.
type Config struct {
	OnlineWindow       time.Duration `env:"MEMBERSHIP_ONLINE_WINDOW" envDefault:"15m"`
	RequireUniqueEmail bool          `env:"MEMBERSHIP_UNIQUE_EMAIL" envDefault:"true"`
}

// DefaultConfig returns the default policy.
func DefaultConfig() Config {
	return Config{
		OnlineWindow:       15 * time.Minute,
		RequireUniqueEmail: true,
	}
}

// Option configures a Store.
type Option func(*Store)

// WithOnlineWindow sets how long after the last activity a user counts as online.
func WithOnlineWindow(d time.Duration) Option {
	return func(s *Store) {
		s.cfg.OnlineWindow = d
	}
}

// WithUniqueEmail controls whether two users may share an e-mail address.
func WithUniqueEmail(unique bool) Option {
	return func(s *Store) {
		s.cfg.RequireUniqueEmail = unique
	}
}

// WithHasher sets the password hasher.
func WithHasher(h *password.Hasher) Option {
	return func(s *Store) {
		s.hasher = h
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}
