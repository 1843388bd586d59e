package commands

import (
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pageboot/internal/config"
	"git.home.luguber.info/inful/pageboot/internal/observability"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"pageboot.yaml"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log format (text or json); overrides the configuration"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Decorate DecorateCmd `cmd:"" help:"Run the staged loader on one page and print the result"`
	Serve    ServeCmd    `cmd:"" help:"Run the edge proxy"`
	Content  ContentCmd  `cmd:"" help:"Run a content query against the resolved environment"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply(g *Global) error {
	g.Logger = c.logger(config.MonitoringLogging{Level: config.LogLevelInfo, Format: config.NormalizeLogFormat(c.LogFormat)})
	slog.SetDefault(g.Logger)
	return nil
}

// logger builds the process logger from the configuration, letting the
// command line flags win.
func (c *CLI) logger(cfg config.MonitoringLogging) *slog.Logger {
	if c.Verbose {
		cfg.Level = config.LogLevelDebug
	}
	if c.LogFormat != "" {
		cfg.Format = config.NormalizeLogFormat(c.LogFormat)
	}
	return observability.NewLogger(os.Stderr, cfg)
}

// loadConfig reads the configuration file. A missing file is not an error:
// defaults and PAGEBOOT_* environment overrides apply instead.
func (c *CLI) loadConfig(g *Global) (*config.Config, bool, error) {
	cfg, err := config.Load(c.Config)
	fromFile := true
	if stderrors.Is(err, fs.ErrNotExist) {
		cfg, err = config.FromEnv()
		fromFile = false
	}
	if err != nil {
		return nil, false, err
	}
	g.Logger = c.logger(cfg.Monitoring.Logging)
	slog.SetDefault(g.Logger)
	return cfg, fromFile, nil
}
