package loader

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/pageboot/internal/aem"
	"git.home.luguber.info/inful/pageboot/internal/decorate"
	"git.home.luguber.info/inful/pageboot/internal/dom"
	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/kvstore"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
	"git.home.luguber.info/inful/pageboot/internal/metrics"
	"git.home.luguber.info/inful/pageboot/internal/observability"
	"git.home.luguber.info/inful/pageboot/internal/outcome"
	"git.home.luguber.info/inful/pageboot/internal/page"
	"git.home.luguber.info/inful/pageboot/internal/registry"
	"git.home.luguber.info/inful/pageboot/internal/rum"
)

// Phase names.
const (
	PhaseEager   = "eager"
	PhaseLazy    = "lazy"
	PhaseDelayed = "delayed"
)

// Step names reported to the observer.
const (
	StepLanguage    = "language"
	StepTemplate    = "template"
	StepDecorate    = "decorate-main"
	StepLCP         = "lcp"
	StepFonts       = "fonts"
	StepBlocks      = "blocks"
	StepScroll      = "scroll"
	StepHeader      = "header"
	StepFooter      = "footer"
	StepLazyStyles  = "lazy-styles"
	StepRUM         = "rum"
	StepDelayed     = "delayed-module"
	StepFontsRecord = "fonts-flag"
)

// FontsLoadedKey is the session key recording that fonts were loaded once.
const FontsLoadedKey = "fonts-loaded"

// DefaultDelayedModule is the name the built-in delayed module registers under.
const DefaultDelayedModule = "delayed"

// Loader drives a page through the eager, lazy and delayed phases.
type Loader struct {
	cfg       atomic.Pointer[Config]
	pipelines decorate.Factory
	resources Resources
	analytics Analytics
	store     kvstore.Store
	templates *registry.Registry[Template]
	delayed   *registry.Registry[DelayedModule]
	observer  outcome.Observer
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithAnalytics sets the RUM sampler.
func WithAnalytics(a Analytics) Option {
	return func(l *Loader) { l.analytics = a }
}

// WithStore sets the session store backing the fonts flag.
func WithStore(s kvstore.Store) Option {
	return func(l *Loader) { l.store = s }
}

// WithTemplates sets the template decorator registry.
func WithTemplates(r *registry.Registry[Template]) Option {
	return func(l *Loader) { l.templates = r }
}

// WithDelayedModules sets the delayed module registry.
func WithDelayedModules(r *registry.Registry[DelayedModule]) Option {
	return func(l *Loader) { l.delayed = r }
}

// WithObserver sets the step observer.
func WithObserver(o outcome.Observer) Option {
	return func(l *Loader) { l.observer = o }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(l *Loader) { l.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a Loader. Unless replaced by WithDelayedModules, the delayed
// registry holds the built-in cwv module under DefaultDelayedModule.
func New(cfg Config, pipelines decorate.Factory, resources Resources, opts ...Option) *Loader {
	l := &Loader{
		pipelines: pipelines,
		resources: resources,
		analytics: noopAnalytics{},
		store:     kvstore.NewMemory(),
		templates: registry.New[Template]("template"),
		observer:  outcome.Discard,
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.delayed == nil {
		l.delayed = registry.New[DelayedModule]("delayed module")
		analytics := l.analytics
		l.delayed.RegisterValue(DefaultDelayedModule, CWVModule{Analytics: analytics})
	}
	l.SetConfig(cfg)
	return l
}

// SetConfig swaps the settings used by subsequent loads.
func (l *Loader) SetConfig(cfg Config) {
	l.cfg.Store(&cfg)
}

// Config returns the current settings.
func (l *Loader) Config() Config {
	return *l.cfg.Load()
}

// Load runs the eager and lazy phases and arms the delayed phase. Pending
// delayed work is tracked by the page; call p.Settle to wait for it.
func (l *Loader) Load(ctx context.Context, p *page.Page) error {
	cfg := l.Config()
	ctx = observability.WithPage(ctx, p.ID, p.URL.String())
	if p.SessionID != "" {
		ctx = observability.WithSession(ctx, p.SessionID)
	}
	if err := l.phase(ctx, PhaseEager, func(ctx context.Context) error { return l.Eager(ctx, p, cfg) }); err != nil {
		return err
	}
	if err := l.phase(ctx, PhaseLazy, func(ctx context.Context) error { return l.Lazy(ctx, p, cfg) }); err != nil {
		return err
	}
	return l.Delayed(ctx, p, cfg)
}

func (l *Loader) phase(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := observability.StartPhase(ctx, name)
	err := fn(ctx)
	observability.EndSpan(span, err)
	l.recorder.ObservePhaseDuration(name, time.Since(start))
	if err != nil {
		l.logger.ErrorContext(ctx, "Load phase aborted",
			logfields.Phase(name),
			logfields.PageID(observability.GetContext(ctx).PageID),
			logfields.Error(err))
	}
	return err
}

func (l *Loader) report(ctx context.Context, phase string, r outcome.Result) {
	l.observer.Observe(ctx, r.InPhase(phase))
}

// Eager prepares everything needed for the largest contentful paint.
func (l *Loader) Eager(ctx context.Context, pg *page.Page, cfg Config) error {
	var (
		hasMain  bool
		template string
		langErr  error
	)
	tag, err := language.Parse(cfg.Language)
	if err != nil {
		langErr = errors.WrapError(err, errors.CategoryValidation, "invalid document language").
			WithContext("language", cfg.Language).Build()
	}
	pg.Do(func(doc *html.Node) {
		if langErr == nil {
			if root := dom.FindElement(doc, "html"); root != nil {
				dom.SetAttr(root, "lang", tag.String())
			}
		}
		aem.DecorateTemplateAndTheme(doc)
		hasMain = aem.Main(doc) != nil
		template = aem.ToClassName(aem.GetMetadata(doc, "template"))
	})
	l.report(ctx, PhaseEager, outcome.FromError(StepLanguage, langErr))

	if hasMain {
		l.report(ctx, PhaseEager, l.runTemplate(ctx, pg, cfg, template))

		start := time.Now()
		pipeline := l.pipelines(pg)
		pg.Do(func(doc *html.Node) {
			pipeline.DecorateMain(ctx, aem.Main(doc))
			if body := aem.Body(doc); body != nil {
				dom.AddClass(body, "appear")
			}
		})
		l.report(ctx, PhaseEager, outcome.Applied(StepDecorate).Took(time.Since(start)))

		if err := l.resources.WaitForLCP(ctx, pg, cfg.LCPBlocks); err != nil {
			l.report(ctx, PhaseEager, outcome.Failed(StepLCP, err))
			return err
		}
		l.report(ctx, PhaseEager, outcome.Applied(StepLCP))
	} else {
		l.report(ctx, PhaseEager, outcome.Skipped(StepDecorate, "no main element"))
	}

	if pg.ViewportWidth >= cfg.FontsMinViewport || l.fontsLoaded(ctx, pg) {
		l.loadFonts(ctx, PhaseEager, pg, cfg)
	} else {
		l.report(ctx, PhaseEager, outcome.Skippedf(StepFonts, "viewport %d below %d", pg.ViewportWidth, cfg.FontsMinViewport))
	}
	return nil
}

func (l *Loader) runTemplate(ctx context.Context, pg *page.Page, cfg Config, name string) outcome.Result {
	if name == "" {
		return outcome.Skipped(StepTemplate, "no template metadata")
	}
	if err := l.resources.LoadCSS(ctx, pg, cfg.CodeBasePath+"/templates/"+name+"/"+name+".css"); err != nil {
		return outcome.Failed(StepTemplate, err)
	}
	if !l.templates.Has(name) {
		return outcome.Skippedf(StepTemplate, "no decorator for template %q", name)
	}
	tmpl, err := l.templates.Resolve(ctx, name)
	if err != nil {
		return outcome.Failed(StepTemplate, err)
	}
	pg.Do(func(doc *html.Node) {
		err = tmpl.Decorate(ctx, doc)
	})
	return outcome.FromError(StepTemplate, err)
}

func (l *Loader) fontsLoaded(ctx context.Context, pg *page.Page) bool {
	v, ok, err := kvstore.Scoped(l.store, pg.SessionID).Get(ctx, FontsLoadedKey)
	if err != nil {
		l.logger.DebugContext(ctx, "Session store unavailable", logfields.Session(pg.SessionID), logfields.Error(err))
		return false
	}
	return ok && v != ""
}

func (l *Loader) loadFonts(ctx context.Context, phase string, pg *page.Page, cfg Config) {
	if err := l.resources.LoadCSS(ctx, pg, cfg.CodeBasePath+cfg.FontsPath); err != nil {
		l.report(ctx, phase, outcome.Failed(StepFonts, err))
		return
	}
	l.report(ctx, phase, outcome.Applied(StepFonts))
	if pg.IsLocal() {
		l.report(ctx, phase, outcome.Skipped(StepFontsRecord, "local host"))
		return
	}
	if err := kvstore.Scoped(l.store, pg.SessionID).Set(ctx, FontsLoadedKey, "true"); err != nil {
		l.report(ctx, phase, outcome.Skipped(StepFontsRecord, err.Error()))
		return
	}
	l.report(ctx, phase, outcome.Applied(StepFontsRecord))
}

// Lazy loads everything that does not block the first paint.
func (l *Loader) Lazy(ctx context.Context, pg *page.Page, cfg Config) error {
	var hasMain bool
	pg.Do(func(doc *html.Node) { hasMain = aem.Main(doc) != nil })
	if hasMain {
		if err := l.resources.LoadBlocks(ctx, pg); err != nil {
			l.report(ctx, PhaseLazy, outcome.Failed(StepBlocks, err))
			return err
		}
		l.report(ctx, PhaseLazy, outcome.Applied(StepBlocks))
	} else {
		l.report(ctx, PhaseLazy, outcome.Skipped(StepBlocks, "no main element"))
	}

	l.report(ctx, PhaseLazy, l.scroll(ctx, pg))
	l.report(ctx, PhaseLazy, outcome.FromError(StepHeader, l.resources.LoadHeader(ctx, pg)))
	l.report(ctx, PhaseLazy, outcome.FromError(StepFooter, l.resources.LoadFooter(ctx, pg)))
	l.report(ctx, PhaseLazy, outcome.FromError(StepLazyStyles, l.resources.LoadCSS(ctx, pg, cfg.CodeBasePath+cfg.LazyStylesPath)))
	l.loadFonts(ctx, PhaseLazy, pg, cfg)

	l.analytics.Sample(ctx, pg, rum.CheckpointLazy, rum.Data{})
	var blocks, images []rum.Data
	pg.Do(func(doc *html.Node) {
		if main := aem.Main(doc); main != nil {
			blocks = observed(main, "div[data-block-name]")
			images = observed(main, "picture > img")
		}
	})
	l.analytics.Observe(ctx, pg, blocks)
	l.analytics.Observe(ctx, pg, images)
	l.report(ctx, PhaseLazy, outcome.Applied(StepRUM))
	return nil
}

func observed(root *html.Node, selector string) []rum.Data {
	elems := dom.QuerySelectorAll(root, selector)
	data := make([]rum.Data, 0, len(elems))
	for _, el := range elems {
		data = append(data, rum.ObservedData(el))
	}
	return data
}

func (l *Loader) scroll(ctx context.Context, pg *page.Page) outcome.Result {
	id := strings.TrimPrefix(pg.Fragment(), "#")
	if id == "" {
		return outcome.Skipped(StepScroll, "no fragment")
	}
	var found bool
	pg.Do(func(doc *html.Node) { found = dom.ElementByID(doc, id) != nil })
	if !found {
		return outcome.Skippedf(StepScroll, "no element with id %q", id)
	}
	return outcome.FromError(StepScroll, l.resources.ScrollIntoView(ctx, pg, id))
}

// Delayed arms the timer that runs the delayed module.
func (l *Loader) Delayed(ctx context.Context, pg *page.Page, cfg Config) error {
	ctx = context.WithoutCancel(ctx)
	err := pg.After(cfg.DelayedAfter, func() {
		_ = l.phase(ctx, PhaseDelayed, func(ctx context.Context) error {
			module, err := l.delayed.Resolve(ctx, cfg.DelayedModule)
			if err != nil {
				l.report(ctx, PhaseDelayed, outcome.Failed(StepDelayed, err))
				return nil
			}
			l.report(ctx, PhaseDelayed, outcome.FromError(StepDelayed, module.Run(ctx, pg)))
			return nil
		})
	})
	if err != nil {
		l.report(ctx, PhaseDelayed, outcome.Failed(StepDelayed, err))
	}
	return err
}
