// Package observability wires structured logging and tracing: a slog logger
// built from the monitoring configuration, page attributes carried on the
// context, and OpenTelemetry spans for loader phases.
package observability

import (
	"context"
	"io"
	"log/slog"

	"git.home.luguber.info/inful/pageboot/internal/config"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
)

// NewLogger builds a slog logger for the configured level and format.
func NewLogger(w io.Writer, cfg config.MonitoringLogging) *slog.Logger {
	opts := &slog.HandlerOptions{Level: SlogLevel(cfg.Level)}
	if cfg.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SlogLevel maps a configured level onto slog.
func SlogLevel(l config.LogLevel) slog.Level {
	switch config.NormalizeLogLevel(string(l)) {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogContext holds the page attributes attached to log lines.
type LogContext struct {
	PageID    string
	URL       string
	SessionID string
	Phase     string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithPage adds the page id and URL to the context.
func WithPage(ctx context.Context, pageID, url string) context.Context {
	lc := GetContext(ctx)
	lc.PageID = pageID
	lc.URL = url
	return context.WithValue(ctx, logContextKey, lc)
}

// WithSession adds a session id to the context.
func WithSession(ctx context.Context, sessionID string) context.Context {
	lc := GetContext(ctx)
	lc.SessionID = sessionID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithPhase adds the loader phase to the context.
func WithPhase(ctx context.Context, phase string) context.Context {
	lc := GetContext(ctx)
	lc.Phase = phase
	return context.WithValue(ctx, logContextKey, lc)
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// Attrs returns the context's page attributes as slog attributes.
func Attrs(ctx context.Context) []slog.Attr {
	lc := GetContext(ctx)
	var attrs []slog.Attr
	if lc.PageID != "" {
		attrs = append(attrs, logfields.PageID(lc.PageID))
	}
	if lc.URL != "" {
		attrs = append(attrs, logfields.URL(lc.URL))
	}
	if lc.SessionID != "" {
		attrs = append(attrs, logfields.Session(lc.SessionID))
	}
	if lc.Phase != "" {
		attrs = append(attrs, logfields.Phase(lc.Phase))
	}
	return attrs
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelInfo, msg, append(Attrs(ctx), attrs...)...)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelWarn, msg, append(Attrs(ctx), attrs...)...)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelError, msg, append(Attrs(ctx), attrs...)...)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelDebug, msg, append(Attrs(ctx), attrs...)...)
}
