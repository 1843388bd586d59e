package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// Validate checks a defaulted configuration and reports every problem found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Site.Origin != "" {
		u, err := url.Parse(cfg.Site.Origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("site.origin must be an absolute URL: %q", cfg.Site.Origin))
		}
	}
	if _, err := language.Parse(cfg.Site.Language); err != nil {
		errs = append(errs, fmt.Errorf("site.language %q is not a valid BCP 47 tag: %w", cfg.Site.Language, err))
	}
	if strings.HasSuffix(cfg.Site.CodeBasePath, "/") {
		errs = append(errs, fmt.Errorf("site.code_base_path must not end with a slash: %q", cfg.Site.CodeBasePath))
	}

	if cfg.Loader.FontsMinViewport < 0 {
		errs = append(errs, errors.New("loader.fonts_min_viewport must not be negative"))
	}
	if cfg.Loader.DelayedAfter < 0 || cfg.Loader.SettleTimeout < 0 || cfg.Hero.VideoDelay < 0 {
		errs = append(errs, errors.New("loader and hero delays must not be negative"))
	}
	if !strings.HasPrefix(cfg.Content.ConfigPath, "/") {
		errs = append(errs, fmt.Errorf("content.config_path must start with '/': %q", cfg.Content.ConfigPath))
	}

	switch cfg.Fragments.Source {
	case FragmentSourceHTTP:
	case FragmentSourceDir:
		if cfg.Fragments.Dir == "" {
			errs = append(errs, errors.New("fragments.dir is required when fragments.source is dir"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown fragments.source: %q", cfg.Fragments.Source))
	}

	switch cfg.Fragments.Retry.Backoff {
	case BackoffFixed, BackoffLinear, BackoffExponential:
	default:
		errs = append(errs, fmt.Errorf("unknown fragments.retry.backoff: %q", cfg.Fragments.Retry.Backoff))
	}
	if cfg.Fragments.Retry.Initial < 0 || cfg.Fragments.Retry.Max < 0 {
		errs = append(errs, errors.New("fragments.retry delays must not be negative"))
	}

	switch cfg.Store.Backend {
	case StoreMemory, StoreDisabled, StoreSQLite:
	case StoreNATS:
		if cfg.Store.NATSURL == "" {
			errs = append(errs, errors.New("store.nats_url is required for the nats backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend: %q", cfg.Store.Backend))
	}

	if cfg.RUM.Weight < 1 {
		errs = append(errs, errors.New("rum.weight must be at least 1"))
	}
	switch cfg.RUM.Sink {
	case RUMSinkLog:
	case RUMSinkNATS:
		if cfg.RUM.Enabled && cfg.RUM.NATSURL == "" {
			errs = append(errs, errors.New("rum.nats_url is required for the nats sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown rum.sink: %q", cfg.RUM.Sink))
	}

	return errors.Join(errs...)
}
