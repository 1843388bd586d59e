package outcome

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/pageboot/internal/logfields"
)

// LogObserver writes results to a slog logger. Failures are logged at error
// level, everything else at debug.
type LogObserver struct {
	Logger *slog.Logger
}

// NewLogObserver returns a LogObserver; a nil logger means slog.Default().
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{Logger: logger}
}

func (o *LogObserver) Observe(ctx context.Context, r Result) {
	attrs := []slog.Attr{
		logfields.Phase(r.Phase),
		logfields.Step(r.Step),
		logfields.Status(string(r.Status)),
	}
	if r.Duration > 0 {
		attrs = append(attrs, logfields.Duration(r.Duration))
	}
	if r.Reason != "" {
		attrs = append(attrs, logfields.Reason(r.Reason))
	}
	switch r.Status {
	case StatusFailed:
		attrs = append(attrs, logfields.Error(r.Err))
		o.Logger.LogAttrs(ctx, slog.LevelError, "Bootstrap step failed", attrs...)
	case StatusSkipped:
		o.Logger.LogAttrs(ctx, slog.LevelDebug, "Bootstrap step skipped", attrs...)
	default:
		o.Logger.LogAttrs(ctx, slog.LevelDebug, "Bootstrap step applied", attrs...)
	}
}
