package handlers

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/loader"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
	"git.home.luguber.info/inful/pageboot/internal/page"
	"git.home.luguber.info/inful/pageboot/internal/schedule"
	"git.home.luguber.info/inful/pageboot/internal/version"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "pageboot_session"

// ScrollTargetHeader carries the id of the element to scroll to.
const ScrollTargetHeader = "X-Scroll-Target"

const maxPageBytes = 10 * 1024 * 1024

// PageHandlers proxies pages from the origin and runs the loader on them.
type PageHandlers struct {
	origin        string
	client        *http.Client
	loader        *loader.Loader
	timer         schedule.Timer
	settleTimeout atomic.Int64
	errorAdapter  *errors.HTTPErrorAdapter
	logger        *slog.Logger
}

// NewPageHandlers creates page handlers fetching from origin with client.
func NewPageHandlers(origin string, client *http.Client, l *loader.Loader, timer schedule.Timer, adapter *errors.HTTPErrorAdapter) *PageHandlers {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if adapter == nil {
		adapter = errors.NewHTTPErrorAdapter(slog.Default())
	}
	return &PageHandlers{
		origin:       strings.TrimSuffix(origin, "/"),
		client:       client,
		loader:       l,
		timer:        timer,
		errorAdapter: adapter,
		logger:       slog.Default(),
	}
}

// SetSettleTimeout bounds how long a response waits for deferred page work.
func (h *PageHandlers) SetSettleTimeout(d time.Duration) {
	h.settleTimeout.Store(int64(d))
}

// HandlePage serves the decorated page for the request path. Responses that
// are not HTML pass through unchanged.
func (h *PageHandlers) HandlePage(w http.ResponseWriter, r *http.Request) {
	resp, err := h.fetch(r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if !isHTML(resp.Header.Get("Content-Type")) {
		passThrough(w, resp)
		return
	}

	session := h.session(w, r)
	p, err := page.Parse(io.LimitReader(resp.Body, maxPageBytes), publicURL(r), page.Options{
		ViewportWidth: ViewportWidth(r),
		SessionID:     session,
		Timer:         h.timer,
	})
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	if err := h.loader.Load(r.Context(), p); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.settle(r.Context(), p)

	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.WrapError(err, errors.CategoryInternal, "failed to render page").Build())
		return
	}
	if target := p.ScrollTarget(); target != "" {
		w.Header().Set(ScrollTargetHeader, target)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed writing page", logfields.Error(err))
	}
}

func (h *PageHandlers) fetch(r *http.Request) (*http.Response, error) {
	target := h.origin + r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to create origin request").
			WithContext("url", target).
			Build()
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "origin request failed").
			WithContext("url", target).
			Retryable().
			Build()
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, errors.NotFoundError("page not found").WithContext("path", r.URL.Path).Build()
	}
	if resp.StatusCode >= 400 {
		_ = resp.Body.Close()
		return nil, errors.NetworkError("origin returned an error").
			WithContext("url", target).
			WithContext("status", resp.StatusCode).
			Build()
	}
	return resp, nil
}

func (h *PageHandlers) settle(ctx context.Context, p *page.Page) {
	timeout := time.Duration(h.settleTimeout.Load())
	if timeout <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.Settle(ctx); err != nil && !stderrors.Is(err, context.DeadlineExceeded) {
		h.logger.WarnContext(ctx, "Deferred page work did not settle", logfields.PageID(p.ID), logfields.Error(err))
	}
}

// session returns the caller's session id, issuing a new one when the cookie
// is missing or malformed.
func (h *PageHandlers) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// ViewportWidth reads the viewport width client hint. Zero means unknown.
func ViewportWidth(r *http.Request) int {
	for _, name := range []string{"Sec-CH-Viewport-Width", "Viewport-Width"} {
		if v := r.Header.Get(name); v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

// publicURL reconstructs the URL the client asked for.
func publicURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/html"
}

func passThrough(w http.ResponseWriter, resp *http.Response) {
	for _, name := range []string{"Content-Type", "Cache-Control", "ETag", "Last-Modified"} {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}
