package rpc

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/rpcgate/core/auth"
	"github.com/dmitrymomot/rpcgate/core/cookie"
)

// Rotation is the RPC token rotation policy.
type Rotation string

const (
	// RotationAuto issues a new token on every call.
	RotationAuto Rotation = "auto"
	// RotationManual issues a token only when a handler asks for it.
	RotationManual Rotation = "manual"
)

// Config holds gateway configuration.
type Config struct {
	ContentType       string   `env:"RPC_CONTENT_TYPE" envDefault:"text/json"`
	TokenSessionKey   string   `env:"RPC_TOKEN_SESSION_KEY" envDefault:"__rpcToken"`
	TokenCookie       string   `env:"RPC_TOKEN_COOKIE" envDefault:"__rpcCookie"`
	IPSessionKey      string   `env:"RPC_IP_SESSION_KEY" envDefault:"__rpcIPaddress"`
	Rotation          Rotation `env:"RPC_TOKEN_ROTATION" envDefault:"auto"`
	RequireAuth       bool     `env:"RPC_REQUIRE_AUTH" envDefault:"false"`
	CompressThreshold int      `env:"RPC_COMPRESS_THRESHOLD" envDefault:"1000"`
	MaxBodyBytes      int64    `env:"RPC_MAX_BODY_BYTES" envDefault:"1048576"`
	TrustProxy        bool     `env:"RPC_TRUST_PROXY" envDefault:"false"`
	Debug             bool     `env:"APP_DEBUG" envDefault:"false"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ContentType:       "text/json",
		TokenSessionKey:   "__rpcToken",
		TokenCookie:       "__rpcCookie",
		IPSessionKey:      "__rpcIPaddress",
		Rotation:          RotationAuto,
		CompressThreshold: 1000,
		MaxBodyBytes:      1 << 20,
	}
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRotation sets the token rotation policy.
func WithRotation(r Rotation) Option {
	return func(g *Gateway) {
		g.cfg.Rotation = r
	}
}

// WithContentType sets the required request content type (prefix match).
func WithContentType(ct string) Option {
	return func(g *Gateway) {
		g.cfg.ContentType = ct
	}
}

// WithRequireAuth makes every call require a signed-in user, except the
// methods exempted with Registry.AllowAnonymous.
func WithRequireAuth(require bool) Option {
	return func(g *Gateway) {
		g.cfg.RequireAuth = require
	}
}

// WithDebug disables response compression.
func WithDebug(debug bool) Option {
	return func(g *Gateway) {
		g.cfg.Debug = debug
	}
}

// WithCompressThreshold sets the body size above which responses are gzipped.
func WithCompressThreshold(n int) Option {
	return func(g *Gateway) {
		g.cfg.CompressThreshold = n
	}
}

// WithAuth sets the authentication manager exposed to handlers.
func WithAuth(m *auth.Manager) Option {
	return func(g *Gateway) {
		g.auth = m
	}
}

// WithCookies sets the cookie manager used for the token cookie.
func WithCookies(m *cookie.Manager) Option {
	return func(g *Gateway) {
		g.cookies = m
	}
}

// WithIPResolver overrides how the client address is taken from a request.
func WithIPResolver(fn func(*http.Request) string) Option {
	return func(g *Gateway) {
		g.remoteIP = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ContentType == "" {
		c.ContentType = def.ContentType
	}
	if c.TokenSessionKey == "" {
		c.TokenSessionKey = def.TokenSessionKey
	}
	if c.TokenCookie == "" {
		c.TokenCookie = def.TokenCookie
	}
	if c.IPSessionKey == "" {
		c.IPSessionKey = def.IPSessionKey
	}
	if c.Rotation == "" {
		c.Rotation = def.Rotation
	}
	if c.CompressThreshold <= 0 {
		c.CompressThreshold = def.CompressThreshold
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	return c
}
