// Package app assembles the pageboot runtime from configuration: session
// store, timers, metrics, analytics, fragment source, resource loader and the
// staged loader itself.
package app

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/pageboot/internal/aem"
	"git.home.luguber.info/inful/pageboot/internal/config"
	"git.home.luguber.info/inful/pageboot/internal/content"
	"git.home.luguber.info/inful/pageboot/internal/decorate"
	"git.home.luguber.info/inful/pageboot/internal/edge"
	"git.home.luguber.info/inful/pageboot/internal/fragment"
	"git.home.luguber.info/inful/pageboot/internal/kvstore"
	"git.home.luguber.info/inful/pageboot/internal/loader"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
	"git.home.luguber.info/inful/pageboot/internal/metrics"
	"git.home.luguber.info/inful/pageboot/internal/observability"
	"git.home.luguber.info/inful/pageboot/internal/outcome"
	"git.home.luguber.info/inful/pageboot/internal/registry"
	"git.home.luguber.info/inful/pageboot/internal/rum"
	"git.home.luguber.info/inful/pageboot/internal/schedule"
)

// Options customizes the runtime. Zero values select production defaults.
type Options struct {
	Logger *slog.Logger
	// Timer replaces the gocron scheduler, mainly for tests.
	Timer schedule.Timer
	// HTTPClient is used for origin and fragment requests.
	HTTPClient *http.Client
	Templates  *registry.Registry[loader.Template]
	Blocks     *registry.Registry[edge.BlockDecorator]
	Delayed    *registry.Registry[loader.DelayedModule]
	// Observer receives step results in addition to the log and metrics
	// observers.
	Observer outcome.Observer
}

// Runtime is a fully wired pageboot instance.
type Runtime struct {
	Config    *config.Config
	Store     kvstore.Store
	Timer     schedule.Timer
	Registry  *prom.Registry
	Recorder  metrics.Recorder
	Pipelines decorate.Factory
	Resources *edge.Resources
	Loader    *loader.Loader
	Content   *content.Client

	logger  *slog.Logger
	closers []func(context.Context) error
}

// New builds the runtime. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *Runtime, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{Config: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
		}
	}()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Monitoring.Tracing)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, shutdownTracing)

	rt.Recorder = metrics.NoopRecorder{}
	if cfg.Monitoring.Metrics.Enabled {
		rt.Registry = prom.NewRegistry()
		rt.Recorder = metrics.NewPrometheusRecorder(rt.Registry)
	}

	rt.Store, err = kvstore.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, func(context.Context) error { return rt.Store.Close() })

	rt.Timer = opts.Timer
	if rt.Timer == nil {
		gt, gerr := schedule.NewGocronTimer()
		if gerr != nil {
			return nil, gerr
		}
		rt.Timer = gt
		rt.closers = append(rt.closers, func(context.Context) error { return gt.Shutdown() })
	}

	observer := outcome.Multi(outcome.NewLogObserver(logger), metrics.StepObserver{Recorder: rt.Recorder}, opts.Observer)

	lib := aem.NewLibrary(cfg.Site.CodeBasePath)
	rt.Pipelines = decorate.NewFactory(lib, observer, cfg.Hero.VideoDelay)

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Server.OriginTimeout}
	}
	fragments, err := fragment.New(cfg.Fragments, cfg.Site.Origin, client)
	if err != nil {
		return nil, err
	}
	resourceOpts := []edge.Option{
		edge.WithFragmentPaths(cfg.Fragments.HeaderPath, cfg.Fragments.FooterPath),
		edge.WithObserver(observer),
		edge.WithLogger(logger),
	}
	if opts.Blocks != nil {
		resourceOpts = append(resourceOpts, edge.WithBlockDecorators(opts.Blocks))
	}
	rt.Resources = edge.New(lib, fragments, rt.Pipelines, resourceOpts...)

	loaderOpts := []loader.Option{
		loader.WithStore(rt.Store),
		loader.WithObserver(observer),
		loader.WithRecorder(rt.Recorder),
		loader.WithLogger(logger),
	}
	if cfg.RUM.Enabled {
		sampler, serr := rt.sampler(cfg.RUM)
		if serr != nil {
			return nil, serr
		}
		loaderOpts = append(loaderOpts, loader.WithAnalytics(sampler))
	}
	if opts.Templates != nil {
		loaderOpts = append(loaderOpts, loader.WithTemplates(opts.Templates))
	}
	if opts.Delayed != nil {
		loaderOpts = append(loaderOpts, loader.WithDelayedModules(opts.Delayed))
	}
	rt.Loader = loader.New(loader.ConfigFrom(cfg), rt.Pipelines, rt.Resources, loaderOpts...)

	rt.Content = content.NewClient(cfg.Site.Origin, cfg.Content,
		content.WithRecorder(rt.Recorder),
		content.WithLogger(logger))

	return rt, nil
}

func (rt *Runtime) sampler(cfg config.RUMConfig) (*rum.Sampler, error) {
	var sink rum.Sink = rum.LogSink{Logger: rt.logger}
	if cfg.Sink == config.RUMSinkNATS {
		ns, err := rum.NewNATSSink(cfg.NATSURL, cfg.Subject)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func(context.Context) error { return ns.Close() })
		sink = ns
	}
	return rum.NewSampler(cfg.Weight, sink, rum.WithRecorder(rt.Recorder)), nil
}

// MetricsHandler serves the Prometheus registry, or nil when metrics are
// disabled.
func (rt *Runtime) MetricsHandler() http.Handler {
	if rt.Registry == nil {
		return nil
	}
	return metrics.HTTPHandler(rt.Registry)
}

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

// Reload applies the hot-reloadable settings of cfg.
func (rt *Runtime) Reload(cfg *config.Config) {
	rt.Loader.SetConfig(loader.ConfigFrom(cfg))
	rt.logger.Info("Loader settings reloaded",
		logfields.Phase("reload"),
		slog.Any("lcp_blocks", cfg.Site.LCPBlocks),
		slog.Duration("delayed_after", cfg.Loader.DelayedAfter))
}

// Close releases everything New opened, newest first.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return stderrors.Join(errs...)
}
