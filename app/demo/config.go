package demo

import (
	"github.com/dmitrymomot/rpcgate/core/auth"
	"github.com/dmitrymomot/rpcgate/core/cookie"
	"github.com/dmitrymomot/rpcgate/core/rpc"
	"github.com/dmitrymomot/rpcgate/core/server"
	"github.com/dmitrymomot/rpcgate/core/session"
	"github.com/dmitrymomot/rpcgate/integration/database/pg"
	"github.com/dmitrymomot/rpcgate/integration/database/redis"
	"github.com/dmitrymomot/rpcgate/pkg/membership"
	"github.com/dmitrymomot/rpcgate/pkg/ratelimiter"
)

// Backends selectable through configuration.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the full application configuration.
type Config struct {
	Cookie     cookie.Config
	Session    session.Config
	Auth       auth.Config
	RPC        rpc.Config
	Membership membership.Config
	Server     server.Config
	Redis      redis.Config
	DB         pg.Config
	SignIn     ratelimiter.Config `envPrefix:"SIGNIN_"`

	AppName        string `env:"APP_NAME" envDefault:"rpcgate-demo"`
	Env            string `env:"APP_ENV" envDefault:"development"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	RPCPath        string `env:"APP_RPC_PATH" envDefault:"/rpc"`
	SessionBackend string `env:"APP_SESSION_BACKEND" envDefault:"memory"`
	UserStore      string `env:"APP_USER_STORE" envDefault:"memory"`
	AdminPassword  string `env:"APP_ADMIN_PASSWORD"`
}

// DefaultConfig returns the configuration used when no environment is set.
func DefaultConfig() Config {
	return Config{
		Cookie:         cookie.DefaultConfig(),
		Session:        session.DefaultConfig(),
		Auth:           auth.DefaultConfig(),
		RPC:            rpc.DefaultConfig(),
		Membership:     membership.DefaultConfig(),
		Server:         server.DefaultConfig(),
		Redis:          redis.DefaultConfig(),
		SignIn:         ratelimiter.DefaultConfig(),
		AppName:        "rpcgate-demo",
		Env:            "development",
		LogLevel:       "info",
		RPCPath:        "/rpc",
		SessionBackend: BackendMemory,
		UserStore:      BackendMemory,
	}
}

// IsDevelopment reports whether the app runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}
