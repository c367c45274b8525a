package server

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/dmitrymomot/rpcgate/core/logger"
)

// Server runs an http.Server until its context ends, then shuts it down
// gracefully. A Server runs at most once at a time.
type Server struct {
	cfg    Config
	tls    *tls.Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	addr    net.Addr
	ready   chan struct{}
	once    sync.Once
}

// New creates a server listening on addr with default timeouts.
func New(addr string, opts ...Option) (*Server, error) {
	cfg := DefaultConfig()
	cfg.Addr = addr
	return NewFromConfig(cfg, opts...)
}

// NewFromConfig creates a server from configuration. Options override config.
func NewFromConfig(cfg Config, opts ...Option) (*Server, error) {
	if cfg.Addr == "" {
		return nil, ErrMissingAddress
	}
	tlsCfg, err := cfg.tlsConfig()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		tls:    tlsCfg,
		logger: logger.NewNop(),
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg = s.cfg.withDefaults()
	s.logger = s.logger.With(logger.Component("server"))
	return s, nil
}

// Run serves handler until ctx is cancelled and returns nil after a clean
// shutdown. It fits errgroup.Group.Go via a closure.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if handler == nil {
		return ErrNilHandler
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrServerAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	if s.tls != nil {
		ln = tls.NewListener(ln, s.tls)
	}

	srv := &http.Server{
		Handler:        handler,
		ReadTimeout:    s.cfg.ReadTimeout,
		WriteTimeout:   s.cfg.WriteTimeout,
		IdleTimeout:    s.cfg.IdleTimeout,
		MaxHeaderBytes: s.cfg.MaxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.once.Do(func() { close(s.ready) })
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "server started", slog.String("addr", ln.Addr().String()), slog.Bool("tls", s.tls != nil))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server", slog.Duration("timeout", s.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server shutdown failed", logger.Error(err))
		return err
	}
	<-errCh
	s.logger.Info("server stopped")
	return nil
}

// Addr blocks until Run is listening and returns the bound address.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-s.ready:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
