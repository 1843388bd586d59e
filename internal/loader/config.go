package loader

import (
	"time"

	"git.home.luguber.info/inful/pageboot/internal/config"
)

// Config holds the loader settings. It replaces page-global constants with
// explicit values.
type Config struct {
	Language         string
	CodeBasePath     string
	LCPBlocks        []string
	FontsMinViewport int
	FontsPath        string
	LazyStylesPath   string
	DelayedAfter     time.Duration
	DelayedModule    string
}

// ConfigFrom extracts the loader settings from the application configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Language:         cfg.Site.Language,
		CodeBasePath:     cfg.Site.CodeBasePath,
		LCPBlocks:        append([]string(nil), cfg.Site.LCPBlocks...),
		FontsMinViewport: cfg.Loader.FontsMinViewport,
		FontsPath:        cfg.Loader.FontsPath,
		LazyStylesPath:   cfg.Loader.LazyStylesPath,
		DelayedAfter:     cfg.Loader.DelayedAfter,
		DelayedModule:    cfg.Loader.DelayedModule,
	}
}

// DefaultConfig returns the loader defaults.
func DefaultConfig() Config {
	return ConfigFrom(config.Default())
}
