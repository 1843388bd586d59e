package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"git.home.luguber.info/inful/pageboot/internal/content"
	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/server/responses"
)

// ContentHandlers exposes content queries to pages.
type ContentHandlers struct {
	client       *content.Client
	errorAdapter *errors.HTTPErrorAdapter
}

// NewContentHandlers creates content handlers.
func NewContentHandlers(client *content.Client, adapter *errors.HTTPErrorAdapter) *ContentHandlers {
	if adapter == nil {
		adapter = errors.NewHTTPErrorAdapter(slog.Default())
	}
	return &ContentHandlers{client: client, errorAdapter: adapter}
}

// HandleQuery runs ?path= with the optional ?param= suffix, forwarding the
// caller's cookies.
func (h *ContentHandlers) HandleQuery(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if !strings.HasPrefix(path, "/") {
		err := errors.ValidationError("query path must start with /").
			WithContext("path", path).
			Build()
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	res, err := h.client.WithCredentials(content.ForwardCookies(r)).
		UseGraphQL(r.Context(), path, r.URL.Query().Get("param"))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, responses.ContentResponse{Env: res.Env, Data: res.Data}); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.WrapError(err, errors.CategoryInternal, "failed to write content response").Build())
	}
}
