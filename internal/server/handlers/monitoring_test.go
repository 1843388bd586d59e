package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pageboot/internal/kvstore"
	"git.home.luguber.info/inful/pageboot/internal/server/responses"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, kvstore.ErrUnavailable
}
func (failingStore) Set(context.Context, string, string) error { return kvstore.ErrUnavailable }
func (failingStore) Close() error                              { return nil }

func TestHandleHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		store      kvstore.Store
		wantCode   int
		wantStatus string
		wantStore  string
	}{
		{"no store", nil, http.StatusOK, "healthy", ""},
		{"memory", kvstore.NewMemory(), http.StatusOK, "healthy", "ok"},
		{"disabled", kvstore.Disabled{}, http.StatusOK, "healthy", "disabled"},
		{"failing", failingStore{}, http.StatusServiceUnavailable, "degraded", kvstore.ErrUnavailable.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMonitoringHandlers(tt.store, nil)
			rec := httptest.NewRecorder()
			h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp responses.HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantStore, resp.Store)
		})
	}
}
