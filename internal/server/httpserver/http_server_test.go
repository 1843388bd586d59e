package httpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pageboot/internal/app"
	"git.home.luguber.info/inful/pageboot/internal/config"
	"git.home.luguber.info/inful/pageboot/internal/schedule"
	handlers "git.home.luguber.info/inful/pageboot/internal/server/handlers"
)

const originPage = `<html><head><title>Post</title></head><body><header></header><main>
<div><h1>Launch</h1><p><picture><img src="/media_1.jpg"></picture></p></div>
<div><p>Body copy</p></div>
</main><footer></footer></body></html>`

func newOrigin(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/blog/post":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, originPage)
		case "/nav.plain.html":
			_, _ = io.WriteString(w, `<div><p><a href="/">Brand</a></p></div>`)
		case "/footer.plain.html":
			_, _ = io.WriteString(w, `<div><p>Footer</p></div>`)
		case "/styles/styles.css":
			w.Header().Set("Content-Type", "text/css")
			_, _ = io.WriteString(w, "body{}")
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestServer(t *testing.T, origin string) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Site.Origin = origin
	cfg.Monitoring.Metrics.Enabled = true
	return newServerWithTimer(t, cfg, schedule.NewManualTimer())
}

func newServerWithTimer(t *testing.T, cfg *config.Config, timer schedule.Timer) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt, err := app.New(context.Background(), cfg, app.Options{Logger: logger, Timer: timer})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })

	pages := handlers.NewPageHandlers(cfg.Site.Origin, nil, rt.Loader, rt.Timer, nil)
	srv := New(cfg, Options{
		Pages:    pages,
		Content:  rt.Content,
		Store:    rt.Store,
		Recorder: rt.Recorder,
		Metrics:  rt.MetricsHandler(),
		Logger:   logger,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string, header map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServer_DecoratesPages(t *testing.T) {
	origin := newOrigin(t)
	defer origin.Close()
	ts := newTestServer(t, origin.URL)

	resp, body := get(t, ts.URL+"/blog/post", map[string]string{"Sec-CH-Viewport-Width": "1280"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, `class="appear"`)
	assert.Contains(t, body, "hero-container")
	assert.Contains(t, body, `<nav id="nav"`)
	assert.Contains(t, body, "Footer")
	assert.Contains(t, body, `href="/styles/fonts.css"`)
	assert.Contains(t, body, `fetchpriority="high"`)

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == handlers.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
}

func TestServer_ReleasesDeferredWorkAcrossRequests(t *testing.T) {
	origin := newOrigin(t)
	defer origin.Close()

	timer, err := schedule.NewGocronTimer()
	require.NoError(t, err)
	t.Cleanup(func() { _ = timer.Shutdown() })

	cfg := config.Default()
	cfg.Site.Origin = origin.URL
	cfg.Loader.DelayedAfter = 20 * time.Millisecond
	ts := newServerWithTimer(t, cfg, timer)

	for range 10 {
		resp, body := get(t, ts.URL+"/blog/post", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, "hero-container")
	}

	require.Eventually(t, func() bool { return timer.Pending() == 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestServer_PassesThroughAssets(t *testing.T) {
	origin := newOrigin(t)
	defer origin.Close()
	ts := newTestServer(t, origin.URL)

	resp, body := get(t, ts.URL+"/styles/styles.css", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/css", resp.Header.Get("Content-Type"))
	assert.Equal(t, "body{}", body)
}

func TestServer_Errors(t *testing.T) {
	origin := newOrigin(t)
	defer origin.Close()
	ts := newTestServer(t, origin.URL)

	resp, body := get(t, ts.URL+"/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, `"code":"not_found"`)

	resp, _ = get(t, ts.URL+"/api/content?path=relative", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/blog/post", strings.NewReader("x"))
	require.NoError(t, err)
	post, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestServer_Monitoring(t *testing.T) {
	origin := newOrigin(t)
	defer origin.Close()
	ts := newTestServer(t, origin.URL)

	resp, body := get(t, ts.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"healthy"`)

	_, _ = get(t, ts.URL+"/blog/post", nil)
	resp, body = get(t, ts.URL+"/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "pageboot_http_request_duration_seconds")
	assert.Contains(t, body, "pageboot_phase_duration_seconds")
	assert.Contains(t, body, "pageboot_step_results_total")
}
