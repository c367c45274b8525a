package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/rpcgate/core/logger"
)

// LoggingConfig configures the access log middleware.
type LoggingConfig struct {
	// Skip excludes requests from the log, e.g. health probes.
	Skip func(r *http.Request) bool
	// Logger is the destination (default: slog.Default()).
	Logger *slog.Logger
	// LogLevel for ordinary requests (default: info).
	LogLevel slog.Level
	// SlowRequestThreshold logs slower requests at warning level (default: 5s).
	SlowRequestThreshold time.Duration
}

// Logging writes one access log line per request.
func Logging(log *slog.Logger) Middleware {
	return LoggingWithConfig(LoggingConfig{Logger: log})
}

// LoggingWithConfig writes one access log line per request. Gateway calls
// always answer 200, so failures show up in the gateway's own log, not here.
func LoggingWithConfig(cfg LoggingConfig) Middleware {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SlowRequestThreshold <= 0 {
		cfg.SlowRequestThreshold = 5 * time.Second
	}
	log := cfg.Logger.With(logger.Component("http"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			elapsed := time.Since(start)

			attrs := []slog.Attr{
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.StatusCode(rw.statusCode),
				logger.Latency(elapsed),
				slog.Int("bytes_out", rw.size),
			}

			level := cfg.LogLevel
			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				level = slog.LevelError
			case rw.statusCode >= http.StatusBadRequest:
				level = slog.LevelWarn
			case elapsed > cfg.SlowRequestThreshold:
				level = slog.LevelWarn
				attrs = append(attrs, slog.Bool("slow_request", true))
			}
			log.LogAttrs(r.Context(), level, "http request completed", attrs...)
		})
	}
}

// responseWriter records the status code and body size.
type responseWriter struct {
	http.ResponseWriter
	statusCode    int
	size          int
	headerWritten bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if rw.headerWritten {
		return
	}
	rw.statusCode = statusCode
	rw.headerWritten = true
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.headerWritten {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
