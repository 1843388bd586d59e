package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override, e.g. PAGEBOOT_SITE_ORIGIN.
const EnvPrefix = "PAGEBOOT_"

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads the first .env file found. Variables already set in the
// process environment win.
func loadEnvFiles() {
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Note: could not load %s: %v\n", path, err)
			continue
		}
		return
	}
}

// applyEnvOverrides sets every field whose PAGEBOOT_* variable is present.
func applyEnvOverrides(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
