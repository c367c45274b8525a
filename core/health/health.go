package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/rpcgate/core/logger"
)

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// DefaultTimeout bounds a readiness probe.
const DefaultTimeout = 5 * time.Second

// Liveness indicates the service process is running.
// Always responds "ALIVE" with 200 OK.
func Liveness() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusOK, "ALIVE")
	})
}

// Readiness verifies all dependencies. Responds "READY" when every check
// passes and 503 when any fails. With no checks it behaves like Liveness.
func Readiness(log *slog.Logger, checks ...CheckFunc) http.Handler {
	if len(checks) == 0 {
		return Liveness()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), DefaultTimeout)
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		for _, check := range checks {
			g.Go(func() error { return check(gctx) })
		}
		if err := g.Wait(); err != nil {
			log.ErrorContext(ctx, "readiness check failed", logger.Error(err))
			write(w, http.StatusServiceUnavailable, "NOT READY")
			return
		}
		write(w, http.StatusOK, "READY")
	})
}

func write(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
