package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler fans records out to the console handler and the rolling log
// file. A failing sink does not stop the others from receiving the record.
type MultiHandler struct {
	sinks []slog.Handler
}

// NewMultiHandler creates a handler that writes to every sink.
func NewMultiHandler(sinks ...slog.Handler) *MultiHandler {
	return &MultiHandler{sinks: sinks}
}

// Enabled reports whether any sink accepts the level.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sink := range h.sinks {
		if sink.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

// Handle writes a clone of r to each sink that accepts its level. Sink
// errors are joined.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler interface requires value
	var errs []error

	for _, sink := range h.sinks {
		if !sink.Enabled(ctx, r.Level) {
			continue
		}

		if err := sink.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// WithAttrs returns a MultiHandler whose sinks all carry attrs.
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(sink slog.Handler) slog.Handler {
		return sink.WithAttrs(attrs)
	})
}

// WithGroup returns a MultiHandler whose sinks all open the group.
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(sink slog.Handler) slog.Handler {
		return sink.WithGroup(name)
	})
}

func (h *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, sink := range h.sinks {
		sinks[i] = fn(sink)
	}

	return &MultiHandler{sinks: sinks}
}
