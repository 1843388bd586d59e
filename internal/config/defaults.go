package config

import "time"

// Default values.
const (
	DefaultLanguage         = "en"
	DefaultFontsMinViewport = 900
	DefaultFontsPath        = "/styles/fonts.css"
	DefaultLazyStylesPath   = "/styles/lazy-styles.css"
	DefaultDelayedAfter     = 3 * time.Second
	DefaultDelayedModule    = "delayed"
	DefaultVideoDelay       = 3 * time.Second
	DefaultContentConfig    = "/demo-config.json"
	DefaultContentTimeout   = 10 * time.Second
	DefaultHeaderPath       = "/nav"
	DefaultFooterPath       = "/footer"
	DefaultRUMWeight        = 100
)

func normalize(cfg *Config) {
	cfg.Monitoring.Logging.Level = NormalizeLogLevel(string(cfg.Monitoring.Logging.Level))
	cfg.Monitoring.Logging.Format = NormalizeLogFormat(string(cfg.Monitoring.Logging.Format))
	cfg.Store.Backend = StoreBackend(clean(string(cfg.Store.Backend)))
	cfg.Fragments.Source = FragmentSource(clean(string(cfg.Fragments.Source)))
	cfg.Fragments.Retry.Backoff = BackoffMode(clean(string(cfg.Fragments.Retry.Backoff)))
	cfg.RUM.Sink = RUMSink(clean(string(cfg.RUM.Sink)))
}

func applyDefaults(cfg *Config) {
	setString(&cfg.Site.Language, DefaultLanguage)
	if cfg.Site.LCPBlocks == nil {
		cfg.Site.LCPBlocks = []string{}
	}

	setInt(&cfg.Loader.FontsMinViewport, DefaultFontsMinViewport)
	setString(&cfg.Loader.FontsPath, DefaultFontsPath)
	setString(&cfg.Loader.LazyStylesPath, DefaultLazyStylesPath)
	setDuration(&cfg.Loader.DelayedAfter, DefaultDelayedAfter)
	setString(&cfg.Loader.DelayedModule, DefaultDelayedModule)

	setDuration(&cfg.Hero.VideoDelay, DefaultVideoDelay)

	setString(&cfg.Content.ConfigPath, DefaultContentConfig)
	setDuration(&cfg.Content.Timeout, DefaultContentTimeout)

	setString((*string)(&cfg.Fragments.Source), string(FragmentSourceHTTP))
	setString(&cfg.Fragments.HeaderPath, DefaultHeaderPath)
	setString(&cfg.Fragments.FooterPath, DefaultFooterPath)
	setString((*string)(&cfg.Fragments.Retry.Backoff), string(BackoffLinear))
	setDuration(&cfg.Fragments.Retry.Initial, 200*time.Millisecond)
	setDuration(&cfg.Fragments.Retry.Max, 2*time.Second)
	setInt(&cfg.Fragments.Retry.MaxRetries, 2)

	setString((*string)(&cfg.Store.Backend), string(StoreMemory))
	setString(&cfg.Store.Path, "pageboot.db")
	setString(&cfg.Store.Bucket, "pageboot-sessions")

	setInt(&cfg.RUM.Weight, DefaultRUMWeight)
	setString((*string)(&cfg.RUM.Sink), string(RUMSinkLog))
	setString(&cfg.RUM.Subject, "pageboot.rum")

	setString(&cfg.Server.Addr, ":8080")
	setDuration(&cfg.Server.ReadTimeout, 15*time.Second)
	setDuration(&cfg.Server.WriteTimeout, 30*time.Second)
	setDuration(&cfg.Server.ShutdownTimeout, 10*time.Second)
	setDuration(&cfg.Server.OriginTimeout, 10*time.Second)

	setString(&cfg.Monitoring.Metrics.Path, "/metrics")
	setString(&cfg.Monitoring.Health.Path, "/healthz")
	setString((*string)(&cfg.Monitoring.Logging.Level), string(LogLevelInfo))
	setString((*string)(&cfg.Monitoring.Logging.Format), string(LogFormatText))
	setString(&cfg.Monitoring.Tracing.ServiceName, "pageboot")
}

func setString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

func setInt(field *int, def int) {
	if *field == 0 {
		*field = def
	}
}

func setDuration(field *time.Duration, def time.Duration) {
	if *field == 0 {
		*field = def
	}
}
