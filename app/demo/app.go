package demo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/rpcgate/core/auth"
	"github.com/dmitrymomot/rpcgate/core/cookie"
	"github.com/dmitrymomot/rpcgate/core/fault"
	"github.com/dmitrymomot/rpcgate/core/health"
	"github.com/dmitrymomot/rpcgate/core/logger"
	"github.com/dmitrymomot/rpcgate/core/rpc"
	"github.com/dmitrymomot/rpcgate/core/server"
	"github.com/dmitrymomot/rpcgate/core/session"
	"github.com/dmitrymomot/rpcgate/integration/database/pg"
	"github.com/dmitrymomot/rpcgate/integration/database/redis"
	"github.com/dmitrymomot/rpcgate/middleware"
	"github.com/dmitrymomot/rpcgate/pkg/membership"
	"github.com/dmitrymomot/rpcgate/pkg/ratelimiter"
)

// Errors returned while assembling the application.
var (
	ErrUnknownBackend = errors.New("demo: unknown backend")
	ErrSeedAdmin      = errors.New("demo: failed to seed administrator")
)

var (
	_ Users = (*membership.Store)(nil)
	_ Users = (*pg.MembershipStore)(nil)
)

// AdminName is the built-in administrator seeded when an admin password is configured.
const AdminName = "admin"

// janitorInterval is how often expired in-memory sessions are collected.
const janitorInterval = time.Minute

// App wires the gateway, its stores and the HTTP surface.
type App struct {
	cfg      Config
	logger   *slog.Logger
	users    Users
	backend  session.Backend
	sessions *session.Store
	registry *rpc.Registry
	gateway  *rpc.Gateway
	limits   *ratelimiter.MemoryStore
	handler  http.Handler
	checks   []health.CheckFunc
	closers  []func()
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger. By default one is built from Config.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithUsers overrides the user store selected by Config.UserStore.
func WithUsers(u Users) Option {
	return func(a *App) {
		a.users = u
	}
}

// WithSessionBackend overrides the backend selected by Config.SessionBackend.
func WithSessionBackend(b session.Backend) Option {
	return func(a *App) {
		a.backend = b
	}
}

// New builds the application with DefaultConfig.
func New(ctx context.Context, opts ...Option) (*App, error) {
	return NewFromConfig(ctx, DefaultConfig(), opts...)
}

// NewFromConfig builds the application from configuration. External
// connections are opened here; call Close to release them.
func NewFromConfig(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = newLogger(cfg)
	}

	if err := a.setup(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) setup(ctx context.Context) error {
	cookies, err := cookie.NewFromConfig(a.cfg.Cookie)
	if err != nil {
		return fmt.Errorf("demo: cookies: %w", err)
	}
	if err := a.openSessions(ctx, cookies); err != nil {
		return err
	}
	if err := a.openUsers(ctx); err != nil {
		return err
	}
	if err := a.seedAdmin(ctx); err != nil {
		return err
	}

	authn, err := auth.NewManagerFromConfig(a.cfg.Auth, a.users, a.users,
		auth.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("demo: auth: %w", err)
	}

	a.limits = ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreLogger(a.logger))
	limiter, err := ratelimiter.NewBucket(a.limits, a.cfg.SignIn)
	if err != nil {
		return fmt.Errorf("demo: sign-in limiter: %w", err)
	}

	a.registry = rpc.NewRegistry(a.logger)
	if err := a.registry.Register(UserClass(a.users, limiter)); err != nil {
		return err
	}
	if err := a.registry.Allow("UserRpc"); err != nil {
		return err
	}
	if err := a.registry.AllowAnonymous("UserRpc", "getCurrentUser", "signIn", "register"); err != nil {
		return err
	}

	a.gateway, err = rpc.NewFromConfig(a.cfg.RPC, a.registry, a.sessions,
		rpc.WithAuth(authn),
		rpc.WithCookies(cookies),
		rpc.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("demo: gateway: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(a.cfg.RPCPath, a.gateway)
	mux.Handle("GET /healthz", health.Readiness(a.logger, a.checks...))

	headers := middleware.APISecurity
	headers.IsDevelopment = a.cfg.IsDevelopment()
	a.handler = middleware.Chain(mux,
		middleware.RequestID(),
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger: a.logger,
			Skip:   func(r *http.Request) bool { return r.URL.Path == "/healthz" },
		}),
		middleware.SecurityHeadersWithConfig(headers),
	)
	return nil
}

func (a *App) openSessions(ctx context.Context, cookies *cookie.Manager) error {
	if a.backend == nil {
		switch a.cfg.SessionBackend {
		case BackendMemory, "":
			a.backend = session.NewMemoryBackend()
		case BackendRedis:
			client, err := redis.Connect(ctx, a.cfg.Redis)
			if err != nil {
				return err
			}
			a.closers = append(a.closers, func() { _ = client.Close() })
			a.checks = append(a.checks, redis.Healthcheck(client))
			if a.backend, err = redis.NewSessionBackendFromConfig(a.cfg.Redis, client); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: session backend %q", ErrUnknownBackend, a.cfg.SessionBackend)
		}
	}

	var err error
	a.sessions, err = session.NewStoreFromConfig(a.cfg.Session, a.backend, cookies,
		session.WithLogger(a.logger))
	return err
}

func (a *App) openUsers(ctx context.Context) error {
	if a.users != nil {
		return nil
	}
	switch a.cfg.UserStore {
	case BackendMemory, "":
		a.users = membership.NewFromConfig(a.cfg.Membership)
	case BackendPostgres:
		pool, err := pg.Connect(ctx, a.cfg.DB)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		a.checks = append(a.checks, pg.Healthcheck(pool))
		return a.openPostgresUsers(ctx, pool)
	default:
		return fmt.Errorf("%w: user store %q", ErrUnknownBackend, a.cfg.UserStore)
	}
	return nil
}

func (a *App) openPostgresUsers(ctx context.Context, pool *pgxpool.Pool) error {
	if err := pg.Migrate(ctx, pool, a.logger); err != nil {
		return err
	}
	store, err := pg.NewMembershipStore(pool, a.cfg.Membership)
	if err != nil {
		return err
	}
	a.users = store
	return nil
}

// seedAdmin creates the built-in administrator and its role. Existing records
// are left as they are.
func (a *App) seedAdmin(ctx context.Context) error {
	if a.cfg.AdminPassword == "" {
		return nil
	}
	role := a.cfg.Auth.AdministratorRole
	if role == "" {
		role = auth.DefaultConfig().AdministratorRole
	}

	err := a.users.CreateRole(ctx, membership.Role{Name: role, Description: "Built-in administrators", Builtin: true})
	if err != nil && !isConflict(err) {
		return errors.Join(ErrSeedAdmin, err)
	}
	_, err = a.users.Create(ctx, membership.NewUser{
		Name:     AdminName,
		Email:    "admin@localhost.localdomain",
		Password: a.cfg.AdminPassword,
		Builtin:  true,
	})
	if err != nil && !isConflict(err) {
		return errors.Join(ErrSeedAdmin, err)
	}
	if err := a.users.AddUserToRoles(ctx, AdminName, role); err != nil {
		return errors.Join(ErrSeedAdmin, err)
	}
	a.logger.InfoContext(ctx, "administrator seeded", logger.UserName(AdminName))
	return nil
}

func isConflict(err error) bool {
	return errors.Is(err, fault.ErrUserAlreadyRegistered) ||
		errors.Is(err, fault.ErrEmailAlreadyRegistered) ||
		errors.Is(err, fault.ErrInvalidOperation)
}

// Handler returns the HTTP surface: the gateway at Config.RPCPath and
// GET /healthz, wrapped in request id, access log and security headers.
func (a *App) Handler() http.Handler { return a.handler }

// Registry returns the class registry, for registering further classes.
func (a *App) Registry() *rpc.Registry { return a.registry }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Run serves until ctx is cancelled. It also drops idle sign-in limits and,
// with the memory session backend, collects expired sessions.
func (a *App) Run(ctx context.Context, opts ...server.Option) error {
	srv, err := server.NewFromConfig(a.cfg.Server, append([]server.Option{server.WithLogger(a.logger)}, opts...)...)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, a.handler)
	})
	g.Go(func() error {
		return a.limits.Run(ctx)
	})
	if mem, ok := a.backend.(*session.MemoryBackend); ok {
		g.Go(func() error {
			a.collectSessions(ctx, mem)
			return nil
		})
	}
	return g.Wait()
}

func (a *App) collectSessions(ctx context.Context, mem *session.MemoryBackend) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := mem.DeleteExpired(ctx)
			if err != nil {
				a.logger.ErrorContext(ctx, "collecting sessions failed", logger.Error(err))
				continue
			}
			if n > 0 {
				a.logger.DebugContext(ctx, "expired sessions collected", slog.Int64("count", n))
			}
		}
	}
}

// Close releases external connections. It is safe to call more than once.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newLogger(cfg Config) *slog.Logger {
	opts := []logger.Option{logger.WithContextExtractors(middleware.RequestIDExtractor)}
	if cfg.IsDevelopment() {
		opts = append(opts, logger.WithDevelopment(cfg.AppName))
	} else {
		opts = append(opts, logger.WithProduction(cfg.AppName))
	}
	opts = append(opts, logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	return logger.New(opts...)
}
