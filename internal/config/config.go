// Package config loads the pageboot configuration: a YAML file with ${VAR}
// expansion, optional .env files, PAGEBOOT_* environment overrides, defaults
// and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the only configuration version accepted by Load.
const CurrentVersion = "1"

// Config is the root configuration.
type Config struct {
	Version    string           `yaml:"version"`
	Site       SiteConfig       `yaml:"site" envPrefix:"SITE_"`
	Loader     LoaderConfig     `yaml:"loader" envPrefix:"LOADER_"`
	Hero       HeroConfig       `yaml:"hero" envPrefix:"HERO_"`
	Content    ContentConfig    `yaml:"content" envPrefix:"CONTENT_"`
	Fragments  FragmentsConfig  `yaml:"fragments" envPrefix:"FRAGMENTS_"`
	Store      StoreConfig      `yaml:"store" envPrefix:"STORE_"`
	RUM        RUMConfig        `yaml:"rum" envPrefix:"RUM_"`
	Server     ServerConfig     `yaml:"server" envPrefix:"SERVER_"`
	Monitoring MonitoringConfig `yaml:"monitoring" envPrefix:"MONITORING_"`
}

// SiteConfig describes the delivered site.
type SiteConfig struct {
	Origin       string   `yaml:"origin" env:"ORIGIN"`                 // Origin pages are fetched from
	Language     string   `yaml:"language" env:"LANGUAGE"`             // BCP 47 document language
	CodeBasePath string   `yaml:"code_base_path" env:"CODE_BASE_PATH"` // Prefix for styles, blocks, icons
	LCPBlocks    []string `yaml:"lcp_blocks" env:"LCP_BLOCKS"`         // Blocks loaded before LCP
}

// LoaderConfig tunes the staged loader.
type LoaderConfig struct {
	FontsMinViewport int           `yaml:"fonts_min_viewport" env:"FONTS_MIN_VIEWPORT"`
	FontsPath        string        `yaml:"fonts_path" env:"FONTS_PATH"`
	LazyStylesPath   string        `yaml:"lazy_styles_path" env:"LAZY_STYLES_PATH"`
	DelayedAfter     time.Duration `yaml:"delayed_after" env:"DELAYED_AFTER"`
	DelayedModule    string        `yaml:"delayed_module" env:"DELAYED_MODULE"`
	// SettleTimeout bounds how long serve waits for deferred work before
	// responding. Zero responds as soon as the delayed phase is armed.
	SettleTimeout time.Duration `yaml:"settle_timeout" env:"SETTLE_TIMEOUT"`
}

// HeroConfig tunes the hero auto-block.
type HeroConfig struct {
	VideoDelay time.Duration `yaml:"video_delay" env:"VIDEO_DELAY"`
}

// ContentConfig configures the content fetch helper.
type ContentConfig struct {
	ConfigPath string        `yaml:"config_path" env:"CONFIG_PATH"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// FragmentsConfig configures where header and footer fragments come from.
type FragmentsConfig struct {
	Source     FragmentSource `yaml:"source" env:"SOURCE"` // http or dir
	Dir        string         `yaml:"dir" env:"DIR"`
	Sanitize   bool           `yaml:"sanitize" env:"SANITIZE"`
	HeaderPath string         `yaml:"header_path" env:"HEADER_PATH"`
	FooterPath string         `yaml:"footer_path" env:"FOOTER_PATH"`
	Retry      RetryConfig    `yaml:"retry" envPrefix:"RETRY_"` // http source only
}

// RetryConfig configures retries of transient origin failures. A negative
// max_retries disables retrying.
type RetryConfig struct {
	Backoff    BackoffMode   `yaml:"backoff" env:"BACKOFF"` // fixed, linear or exponential
	Initial    time.Duration `yaml:"initial" env:"INITIAL"`
	Max        time.Duration `yaml:"max" env:"MAX"`
	MaxRetries int           `yaml:"max_retries" env:"MAX_RETRIES"`
}

// StoreConfig selects the session store backend.
type StoreConfig struct {
	Backend StoreBackend `yaml:"backend" env:"BACKEND"`
	Path    string       `yaml:"path" env:"PATH"`         // sqlite database path
	NATSURL string       `yaml:"nats_url" env:"NATS_URL"` // nats server
	Bucket  string       `yaml:"bucket" env:"BUCKET"`     // nats key-value bucket
}

// RUMConfig configures real user monitoring sampling.
type RUMConfig struct {
	Enabled bool    `yaml:"enabled" env:"ENABLED"`
	Weight  int     `yaml:"weight" env:"WEIGHT"`
	Sink    RUMSink `yaml:"sink" env:"SINK"`
	NATSURL string  `yaml:"nats_url" env:"NATS_URL"`
	Subject string  `yaml:"subject" env:"SUBJECT"`
}

// ServerConfig configures the edge proxy.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	OriginTimeout   time.Duration `yaml:"origin_timeout" env:"ORIGIN_TIMEOUT"`
}

// MonitoringConfig represents monitoring and observability configuration
type MonitoringConfig struct {
	Metrics MonitoringMetrics `yaml:"metrics" envPrefix:"METRICS_"`
	Health  MonitoringHealth  `yaml:"health" envPrefix:"HEALTH_"`
	Logging MonitoringLogging `yaml:"logging" envPrefix:"LOG_"`
	Tracing MonitoringTracing `yaml:"tracing" envPrefix:"TRACING_"`
}

type MonitoringMetrics struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

type MonitoringHealth struct {
	Path string `yaml:"path" env:"PATH"`
}

type MonitoringLogging struct {
	Level  LogLevel  `yaml:"level" env:"LEVEL"`
	Format LogFormat `yaml:"format" env:"FORMAT"`
}

// MonitoringTracing enables OpenTelemetry export when OTLPEndpoint is set.
type MonitoringTracing struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string `yaml:"service_name" env:"SERVICE_NAME"`
}

// Load reads, expands, overrides, defaults and validates a configuration file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML content.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported configuration version: %q (expected %s)", cfg.Version, CurrentVersion)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	normalize(&cfg)
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied. It is what
// commands run with when no configuration file is given.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	applyDefaults(cfg)
	return cfg
}

// FromEnv returns the defaults with PAGEBOOT_* overrides applied.
func FromEnv() (*Config, error) {
	loadEnvFiles()
	cfg := &Config{Version: CurrentVersion}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	normalize(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	example.Site.Origin = "https://main--site--org.aem.live"
	example.Monitoring.Metrics.Enabled = true

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
