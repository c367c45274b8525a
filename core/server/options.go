package server

import (
	"log/slog"
	"time"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithShutdownTimeout sets how long in-flight requests may take to finish.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.cfg.ShutdownTimeout = d
	}
}
