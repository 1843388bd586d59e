package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"git.home.luguber.info/inful/pageboot/internal/config"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, config.MonitoringLogging{Level: config.LogLevelWarn, Format: config.LogFormatJSON})

	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, SlogLevel(config.LogLevelDebug))
	assert.Equal(t, slog.LevelError, SlogLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, SlogLevel(""))
}

func TestLogContext(t *testing.T) {
	ctx := WithPage(context.Background(), "page-1", "https://example.com/")
	ctx = WithSession(ctx, "sess-1")
	ctx = WithPhase(ctx, "eager")

	lc := GetContext(ctx)
	assert.Equal(t, LogContext{PageID: "page-1", URL: "https://example.com/", SessionID: "sess-1", Phase: "eager"}, lc)
	assert.Len(t, Attrs(ctx), 4)
	assert.Empty(t, Attrs(context.Background()))
}

func TestContextLoggingUsesDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := WithPhase(WithPage(context.Background(), "page-1", "/"), "lazy")
	WarnContext(ctx, "fonts skipped", slog.String("reason", "storage"))

	out := buf.String()
	assert.Contains(t, out, "page_id=page-1")
	assert.Contains(t, out, "phase=lazy")
	assert.Contains(t, out, "reason=storage")
}

func TestSetupTracing_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.MonitoringTracing{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestStartPhase(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartPhase(WithPage(context.Background(), "page-1", "/"), "eager")
	assert.Equal(t, "eager", GetContext(ctx).Phase)
	EndSpan(span, errors.New("lcp wait failed"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "loader.eager", spans[0].Name())
	assert.Equal(t, "lcp wait failed", spans[0].Status().Description)
}
