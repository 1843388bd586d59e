package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pageboot/internal/config"
)

const fixturePage = `<!DOCTYPE html><html><head><title>t</title></head><body style="display:none">
<header></header><main><div><h1>Hello</h1><p>Body text</p></div></main><footer></footer></body></html>`

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pageboot.yaml")

	require.NoError(t, RunInit(path, false))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://main--site--org.aem.live", cfg.Site.Origin)

	require.Error(t, RunInit(path, false))
	require.NoError(t, RunInit(path, true))
}

func TestRunDecorate(t *testing.T) {
	origin := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(origin.Close)

	src := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(src, []byte(fixturePage), 0o600))

	cfg := config.Default()
	cfg.Site.Origin = origin.URL
	cfg.Monitoring.Metrics.Enabled = false

	var out bytes.Buffer
	cmd := &DecorateCmd{Source: src, URL: origin.URL + "/index", Viewport: 1280, Settle: 50 * time.Millisecond}
	require.NoError(t, RunDecorate(context.Background(), cfg, cmd, &out))

	html := out.String()
	assert.Contains(t, html, `lang="en"`)
	assert.Contains(t, html, "appear")
	assert.Contains(t, html, "/styles/fonts.css")
	assert.Contains(t, html, `data-section-status="loaded"`)
	assert.NotContains(t, html, "display:none")
}

func TestRunDecorate_MissingFile(t *testing.T) {
	cfg := config.Default()
	cmd := &DecorateCmd{Source: filepath.Join(t.TempDir(), "missing.html"), Settle: time.Millisecond}
	require.Error(t, RunDecorate(context.Background(), cfg, cmd, &bytes.Buffer{}))
}

func TestRunContent(t *testing.T) {
	mux := http.NewServeMux()
	var origin *httptest.Server
	mux.HandleFunc("/demo-config.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"aem-author":"` + origin.URL + `/"}]}`))
	})
	mux.HandleFunc("/graphql/execute.json/site/articles", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"articles":[]}}`))
	})
	origin = httptest.NewServer(mux)
	t.Cleanup(origin.Close)

	cfg := config.Default()
	cfg.Site.Origin = origin.URL

	var out bytes.Buffer
	cmd := &ContentCmd{Path: "/graphql/execute.json/site/articles"}
	require.NoError(t, RunContent(context.Background(), cfg, cmd, &out))

	var res struct {
		Env  string          `json:"env"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, origin.URL, res.Env)
	assert.JSONEq(t, `{"data":{"articles":[]}}`, string(res.Data))
}
