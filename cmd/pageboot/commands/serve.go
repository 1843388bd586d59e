package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/pageboot/internal/app"
	"git.home.luguber.info/inful/pageboot/internal/config"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
	"git.home.luguber.info/inful/pageboot/internal/server/handlers"
	"git.home.luguber.info/inful/pageboot/internal/server/httpserver"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr  string `help:"Listen address; overrides server.addr"`
	Watch bool   `help:"Reload loader settings when the configuration file changes" default:"true" negatable:""`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, fromFile, err := root.loadConfig(g)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configPath := ""
	if fromFile && s.Watch {
		configPath = root.Config
	}
	return RunServe(ctx, cfg, configPath, g.Logger)
}

// RunServe runs the edge proxy until ctx is done. A non-empty configPath is
// watched for changes.
func RunServe(ctx context.Context, cfg *config.Config, configPath string, logger *slog.Logger) error {
	rt, err := app.New(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Runtime shutdown incomplete", logfields.Error(err))
		}
	}()

	pages := handlers.NewPageHandlers(cfg.Site.Origin, &http.Client{Timeout: cfg.Server.OriginTimeout}, rt.Loader, rt.Timer, nil)
	pages.SetSettleTimeout(cfg.Loader.SettleTimeout)

	srv := httpserver.New(cfg, httpserver.Options{
		Pages:    pages,
		Content:  rt.Content,
		Store:    rt.Store,
		Recorder: rt.Recorder,
		Metrics:  rt.MetricsHandler(),
		Logger:   logger,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}

	group, gctx := errgroup.WithContext(ctx)
	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, func(next *config.Config) {
			rt.Reload(next)
			pages.SetSettleTimeout(next.Loader.SettleTimeout)
		})
		if err != nil {
			logger.Warn("Configuration watch disabled", logfields.Path(configPath), logfields.Error(err))
		} else {
			group.Go(func() error {
				if err := watcher.Run(gctx); err != nil {
					logger.Warn("Configuration watch stopped", logfields.Error(err))
				}
				return nil
			})
		}
	}
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", logfields.Duration(cfg.Server.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	return group.Wait()
}
