package fragment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pageboot/internal/config"
	"git.home.luguber.info/inful/pageboot/internal/dom"
	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/retry"
)

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/nav.plain.html":
			_, _ = w.Write([]byte(`<div><p><a href="/">Home</a></p></div>`))
		case "/broken.plain.html":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/", nil)
	ctx := context.Background()

	body, err := src.Fetch(ctx, "/nav")
	require.NoError(t, err)
	assert.Contains(t, body, "Home")

	_, err = src.Fetch(ctx, "/footer")
	assert.Equal(t, errors.CategoryNotFound, errors.GetCategory(err))

	_, err = src.Fetch(ctx, "/broken")
	assert.Equal(t, errors.CategoryNetwork, errors.GetCategory(err))

	_, err = src.Fetch(ctx, "nav")
	assert.Equal(t, errors.CategoryValidation, errors.GetCategory(err))

	_, err = src.Fetch(ctx, "//evil.example.com/nav")
	assert.Equal(t, errors.CategoryValidation, errors.GetCategory(err))
}

func TestHTTPSource_Retry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		switch {
		case r.URL.Path == "/teapot.plain.html":
			w.WriteHeader(http.StatusTeapot)
		case n < 3:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`<p>ok</p>`))
		}
	}))
	defer srv.Close()

	policy := retry.Policy{Mode: config.BackoffFixed, Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2}
	src := NewHTTPSource(srv.URL, nil).WithRetry(policy)

	body, err := src.Fetch(context.Background(), "/nav")
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", body)
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(10)
	_, err = src.Fetch(context.Background(), "/teapot")
	require.Error(t, err)
	assert.Equal(t, int32(11), calls.Load(), "client errors are not retried")
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nav.plain.html"), []byte(`<div><p>Nav</p></div>`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "footer.md"), []byte("# Footer\n\n[Imprint](/imprint)\n"), 0o600))

	src, err := NewDirSource(dir)
	require.NoError(t, err)
	ctx := context.Background()

	body, err := src.Fetch(ctx, "/nav")
	require.NoError(t, err)
	assert.Equal(t, `<div><p>Nav</p></div>`, body)

	body, err = src.Fetch(ctx, "/footer")
	require.NoError(t, err)
	assert.Contains(t, body, "<h1>Footer</h1>")
	assert.Contains(t, body, `<a href="/imprint">Imprint</a>`)

	_, err = src.Fetch(ctx, "/missing")
	assert.Equal(t, errors.CategoryNotFound, errors.GetCategory(err))

	_, err = src.Fetch(ctx, "/../outside")
	assert.Error(t, err)
}

func TestNewDirSource_Missing(t *testing.T) {
	_, err := NewDirSource(filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, errors.CategoryConfig, errors.GetCategory(err))
}

func TestSanitized(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nav.plain.html"),
		[]byte(`<div class="nav-brand"><script>alert(1)</script><p onclick="x()"><picture><source srcset="a.webp" type="image/webp"><img src="a.png" alt=""></picture></p></div>`), 0o600))

	src, err := New(config.FragmentsConfig{Source: config.FragmentSourceDir, Dir: dir, Sanitize: true}, "", nil)
	require.NoError(t, err)

	body, err := src.Fetch(context.Background(), "/nav")
	require.NoError(t, err)
	assert.NotContains(t, body, "<script")
	assert.NotContains(t, body, "onclick")
	assert.Contains(t, body, `class="nav-brand"`)
	assert.Contains(t, body, "<source")
	assert.Contains(t, body, "a.webp")
}

func TestNew_UnknownSource(t *testing.T) {
	_, err := New(config.FragmentsConfig{Source: "ftp"}, "", nil)
	assert.Equal(t, errors.CategoryConfig, errors.GetCategory(err))
}

func TestParse(t *testing.T) {
	nodes, err := Parse(`<div><p>one</p></div><div><p>two</p></div>`)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "one", dom.TextContent(nodes[0]))
	assert.Equal(t, "two", dom.TextContent(nodes[1]))
}
