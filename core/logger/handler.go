package logger

import (
	"context"
	"log/slog"
)

// safeHandler isolates callers from the sink: a failing writer or a panicking
// downstream handler is swallowed and never interrupts the primary operation.
type safeHandler struct {
	next       slog.Handler
	extractors []ContextExtractor
}

// Safe wraps h so that Handle never returns an error and never panics.
// Extractors add context-derived attributes to each record.
func Safe(h slog.Handler, extractors ...ContextExtractor) slog.Handler {
	if sh, ok := h.(*safeHandler); ok && len(extractors) == 0 {
		return sh
	}
	return &safeHandler{next: h, extractors: extractors}
}

func (h *safeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *safeHandler) Handle(ctx context.Context, r slog.Record) (err error) {
	defer func() {
		if recover() != nil {
			err = nil
		}
	}()

	if ctx != nil {
		for _, extract := range h.extractors {
			if attr, ok := extract(ctx); ok {
				r.AddAttrs(attr)
			}
		}
	}

	_ = h.next.Handle(ctx, r)
	return nil
}

func (h *safeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &safeHandler{next: h.next.WithAttrs(attrs), extractors: h.extractors}
}

func (h *safeHandler) WithGroup(name string) slog.Handler {
	return &safeHandler{next: h.next.WithGroup(name), extractors: h.extractors}
}
