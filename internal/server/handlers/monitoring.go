package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/kvstore"
	"git.home.luguber.info/inful/pageboot/internal/server/responses"
	"git.home.luguber.info/inful/pageboot/internal/version"
)

const healthProbeKey = "healthz"

// MonitoringHandlers serves the health endpoint.
type MonitoringHandlers struct {
	started      time.Time
	store        kvstore.Store
	errorAdapter *errors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates monitoring handlers. The store, when set, is
// probed on every health check.
func NewMonitoringHandlers(store kvstore.Store, adapter *errors.HTTPErrorAdapter) *MonitoringHandlers {
	if adapter == nil {
		adapter = errors.NewHTTPErrorAdapter(slog.Default())
	}
	return &MonitoringHandlers{started: time.Now(), store: store, errorAdapter: adapter}
}

// HandleHealthCheck reports healthy unless the session store fails a probe.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &responses.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(h.started).Seconds(),
	}
	status := http.StatusOK
	if _, disabled := h.store.(kvstore.Disabled); disabled {
		health.Store = "disabled"
	} else if h.store != nil {
		health.Store = "ok"
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, _, err := h.store.Get(ctx, healthProbeKey); err != nil {
			health.Status = "degraded"
			health.Store = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	if err := writeJSON(w, status, health); err != nil {
		internalErr := errors.WrapError(err, errors.CategoryInternal, "failed to write health response").
			Build()
		h.errorAdapter.WriteErrorResponse(w, r, internalErr)
	}
}
