package session

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/rpcgate/core/logger"
)

// Config holds session store configuration.
type Config struct {
	CookieName   string        `env:"SESSION_COOKIE" envDefault:"RPCSESSID"`
	TokenKey     string        `env:"SESSION_TOKEN_KEY" envDefault:"__sessionToken"`
	HTTPOnly     bool          `env:"SESSION_HTTP_ONLY" envDefault:"true"`
	TTL          time.Duration `env:"SESSION_TTL" envDefault:"24m"`
	CookiePath   string        `env:"SESSION_COOKIE_PATH" envDefault:"/"`
	CookieDomain string        `env:"SESSION_COOKIE_DOMAIN"`

	logger *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		CookieName: "RPCSESSID",
		TokenKey:   "__sessionToken",
		HTTPOnly:   true,
		TTL:        24 * time.Minute,
		CookiePath: "/",
	}
}

// Option is a functional option for configuring the session store.
type Option func(*Config)

// WithCookieName sets the name of the session id cookie.
func WithCookieName(name string) Option {
	return func(c *Config) {
		c.CookieName = name
	}
}

// WithTokenKey sets the session key that holds the integrity token.
func WithTokenKey(key string) Option {
	return func(c *Config) {
		c.TokenKey = key
	}
}

// WithHTTPOnly controls the HttpOnly flag of the session cookie.
func WithHTTPOnly(httpOnly bool) Option {
	return func(c *Config) {
		c.HTTPOnly = httpOnly
	}
}

// WithTTL sets the session idle lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.TTL = ttl
	}
}

// WithCookiePath sets the session cookie path.
func WithCookiePath(path string) Option {
	return func(c *Config) {
		c.CookiePath = path
	}
}

// WithCookieDomain sets the session cookie domain.
func WithCookieDomain(domain string) Option {
	return func(c *Config) {
		c.CookieDomain = domain
	}
}

// WithLogger sets the logger used for session state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.logger = l
	}
}

func (c Config) apply(opts []Option) Config {
	for _, opt := range opts {
		opt(&c)
	}
	def := DefaultConfig()
	if c.CookieName == "" {
		c.CookieName = def.CookieName
	}
	if c.TokenKey == "" {
		c.TokenKey = def.TokenKey
	}
	if c.TTL <= 0 {
		c.TTL = def.TTL
	}
	if c.CookiePath == "" {
		c.CookiePath = def.CookiePath
	}
	if c.logger == nil {
		c.logger = logger.NewNop()
	}
	return c
}
