package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	sessionIDKey ctxKey = iota
	widgetKey
	resourcePathKey
)

// WithSessionID returns a context with the session ID set.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// WithWidget returns a context with the widget (root) id set.
func WithWidget(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, widgetKey, id)
}

// WithResourcePath returns a context with the current resource path set,
// in its slash-joined key form.
func WithResourcePath(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, resourcePathKey, key)
}

// SessionID extracts the session ID from the context, or "" if absent.
func SessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// Widget extracts the widget id from the context, or "" if absent.
func Widget(ctx context.Context) string {
	v, _ := ctx.Value(widgetKey).(string)
	return v
}

// ResourcePath extracts the resource path key from the context, or "" if absent.
func ResourcePath(ctx context.Context) string {
	v, _ := ctx.Value(resourcePathKey).(string)
	return v
}

// WithIDs sets all three correlation IDs on the context at once.
func WithIDs(ctx context.Context, sessionID, widget, resourcePath string) context.Context {
	ctx = WithSessionID(ctx, sessionID)
	ctx = WithWidget(ctx, widget)
	ctx = WithResourcePath(ctx, resourcePath)
	return ctx
}

// LogWith returns a logger enriched with correlation IDs from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if sID := SessionID(ctx); sID != "" {
		logger = logger.With(slog.String("session_id", sID))
	}
	if w := Widget(ctx); w != "" {
		logger = logger.With(slog.String("widget", w))
	}
	if p := ResourcePath(ctx); p != "" {
		logger = logger.With(slog.String("resource_path", p))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := SessionID(ctx); v != "" {
		r.AddAttrs(slog.String("session_id", v))
	}
	if v := Widget(ctx); v != "" {
		r.AddAttrs(slog.String("widget", v))
	}
	if v := ResourcePath(ctx); v != "" {
		r.AddAttrs(slog.String("resource_path", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
