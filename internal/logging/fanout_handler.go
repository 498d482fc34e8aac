package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// sink is one destination of a fanoutHandler. Each sink filters by its own
// level, so the JSON log file can record debug lines the console drops.
type sink struct {
	name    string
	handler slog.Handler
}

type fanoutHandler struct {
	sinks []sink
}

// newFanoutHandler combines sinks, skipping nil handlers. A single sink is
// returned unwrapped.
func newFanoutHandler(sinks ...sink) slog.Handler {
	var kept []sink
	for _, s := range sinks {
		if s.handler != nil {
			kept = append(kept, s)
		}
	}
	switch len(kept) {
	case 0:
		return NoopHandler{}
	case 1:
		return kept[0].handler
	}
	return &fanoutHandler{sinks: kept}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes record to every sink that accepts its level. A failing sink
// does not stop the others; their errors are joined.
func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	last := len(h.sinks) - 1
	for i, s := range h.sinks {
		if !s.handler.Enabled(ctx, record.Level) {
			continue
		}
		rec := record
		if i < last {
			rec = record.Clone()
		}
		if err := s.handler.Handle(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("%s log: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h *fanoutHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	next := make([]sink, len(h.sinks))
	for i, s := range h.sinks {
		next[i] = sink{name: s.name, handler: fn(s.handler)}
	}
	return &fanoutHandler{sinks: next}
}
