package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	graphIDKey ctxKey = iota
	passKey
	revisionKey
)

// WithGraphID returns a context carrying the graph ID under compilation or diff.
func WithGraphID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, graphIDKey, id)
}

// WithPass returns a context naming the running pass ("compile", "diff", ...).
func WithPass(ctx context.Context, pass string) context.Context {
	return context.WithValue(ctx, passKey, pass)
}

// WithRevision returns a context carrying a stored revision number.
func WithRevision(ctx context.Context, rev int) context.Context {
	return context.WithValue(ctx, revisionKey, rev)
}

// GraphID extracts the graph ID from the context, or "" if absent.
func GraphID(ctx context.Context) string {
	v, _ := ctx.Value(graphIDKey).(string)
	return v
}

// Pass extracts the pass name from the context, or "" if absent.
func Pass(ctx context.Context) string {
	v, _ := ctx.Value(passKey).(string)
	return v
}

// Revision extracts the revision number, or 0 if absent.
func Revision(ctx context.Context) int {
	v, _ := ctx.Value(revisionKey).(int)
	return v
}

// LogWith returns a logger enriched with the correlation values in ctx.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if attrs := correlationAttrs(ctx); len(attrs) > 0 {
		args := make([]any, len(attrs))
		for i, a := range attrs {
			args[i] = a
		}
		logger = logger.With(args...)
	}
	return logger
}

func correlationAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if v := GraphID(ctx); v != "" {
		attrs = append(attrs, slog.String("graph_id", v))
	}
	if v := Pass(ctx); v != "" {
		attrs = append(attrs, slog.String("pass", v))
	}
	if v := Revision(ctx); v != 0 {
		attrs = append(attrs, slog.Int("revision", v))
	}
	return attrs
}

// CorrelationHandler wraps an slog.Handler, injecting the correlation values
// from the context into every record. Use with
// slog.New(NewCorrelationHandler(inner)) and the *Context logging methods.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(correlationAttrs(ctx)...)
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
