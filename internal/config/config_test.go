package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("version: \"1\"\n"))
	require.NoError(t, err)

	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("parsed minimal config differs from defaults (-want +got):\n%s", diff)
	}
	assert.Equal(t, 900, cfg.Loader.FontsMinViewport)
	assert.Equal(t, 3*time.Second, cfg.Loader.DelayedAfter)
	assert.Equal(t, "delayed", cfg.Loader.DelayedModule)
	assert.Equal(t, "/demo-config.json", cfg.Content.ConfigPath)
	assert.Empty(t, cfg.Site.LCPBlocks)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, RetryConfig{Backoff: BackoffLinear, Initial: 200 * time.Millisecond, Max: 2 * time.Second, MaxRetries: 2}, cfg.Fragments.Retry)
}

func TestParse_FullDocument(t *testing.T) {
	t.Setenv("ORIGIN_HOST", "main--site--org.aem.page")

	cfg, err := Parse([]byte(`
version: "1"
site:
  origin: https://${ORIGIN_HOST}
  language: de-CH
  code_base_path: /code
  lcp_blocks: [hero, carousel]
loader:
  fonts_min_viewport: 1024
  delayed_after: 5s
  settle_timeout: 4s
hero:
  video_delay: 1500ms
store:
  backend: SQLite
  path: /tmp/sessions.db
monitoring:
  logging:
    level: WARNING
    format: JSON
`))
	require.NoError(t, err)

	want := Default()
	want.Site = SiteConfig{
		Origin:       "https://main--site--org.aem.page",
		Language:     "de-CH",
		CodeBasePath: "/code",
		LCPBlocks:    []string{"hero", "carousel"},
	}
	want.Loader.FontsMinViewport = 1024
	want.Loader.DelayedAfter = 5 * time.Second
	want.Loader.SettleTimeout = 4 * time.Second
	want.Hero.VideoDelay = 1500 * time.Millisecond
	want.Store.Backend = StoreSQLite
	want.Store.Path = "/tmp/sessions.db"
	want.Monitoring.Logging = MonitoringLogging{Level: LogLevelWarn, Format: LogFormatJSON}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("PAGEBOOT_SITE_ORIGIN", "https://override.example")
	t.Setenv("PAGEBOOT_SITE_LCP_BLOCKS", "hero,cards")
	t.Setenv("PAGEBOOT_LOADER_DELAYED_AFTER", "250ms")
	t.Setenv("PAGEBOOT_STORE_BACKEND", "disabled")
	t.Setenv("PAGEBOOT_MONITORING_METRICS_ENABLED", "true")

	cfg, err := Parse([]byte("version: \"1\"\nsite:\n  origin: https://file.example\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://override.example", cfg.Site.Origin)
	assert.Equal(t, []string{"hero", "cards"}, cfg.Site.LCPBlocks)
	assert.Equal(t, 250*time.Millisecond, cfg.Loader.DelayedAfter)
	assert.Equal(t, StoreDisabled, cfg.Store.Backend)
	assert.True(t, cfg.Monitoring.Metrics.Enabled)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"version", "version: \"2\"\n", "unsupported configuration version"},
		{"origin", "version: \"1\"\nsite:\n  origin: not-a-url\n", "site.origin"},
		{"language", "version: \"1\"\nsite:\n  language: \"--\"\n", "site.language"},
		{"code base", "version: \"1\"\nsite:\n  code_base_path: /code/\n", "code_base_path"},
		{"backend", "version: \"1\"\nstore:\n  backend: redis\n", "store.backend"},
		{"nats url", "version: \"1\"\nstore:\n  backend: nats\n", "store.nats_url"},
		{"fragments dir", "version: \"1\"\nfragments:\n  source: dir\n", "fragments.dir"},
		{"config path", "version: \"1\"\ncontent:\n  config_path: demo.json\n", "content.config_path"},
		{"retry backoff", "version: \"1\"\nfragments:\n  retry:\n    backoff: jitter\n", "fragments.retry.backoff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInitThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pageboot.yaml")
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false), "existing file needs force")
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://main--site--org.aem.live", cfg.Site.Origin)
	assert.True(t, cfg.Monitoring.Metrics.Enabled)
	assert.Equal(t, DefaultDelayedAfter, cfg.Loader.DelayedAfter)
}

func TestNormalizers(t *testing.T) {
	assert.Equal(t, LogLevelDebug, NormalizeLogLevel(" DEBUG "))
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel("warning"))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("verbose"))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat("Json"))
	assert.Equal(t, LogFormatText, NormalizeLogFormat(""))
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pageboot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\n"), 0o600))

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\nloader:\n  delayed_after: 7s\n"), 0o600))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 7*time.Second, cfg.Loader.DelayedAfter)
	case <-time.After(5 * time.Second):
		t.Fatal("configuration was not reloaded")
	}

	cancel()
	require.NoError(t, <-done)
}
