// Package edge implements the loader's resource contract for pages rendered
// on the server: stylesheets and block modules become head elements, header
// and footer fragments are fetched and inlined, and registered Go decorators
// stand in for block scripts.
package edge

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/aem"
	"git.home.luguber.info/inful/pageboot/internal/decorate"
	"git.home.luguber.info/inful/pageboot/internal/dom"
	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/fragment"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
	"git.home.luguber.info/inful/pageboot/internal/outcome"
	"git.home.luguber.info/inful/pageboot/internal/page"
	"git.home.luguber.info/inful/pageboot/internal/registry"
)

// Phase is the phase block results are reported under.
const Phase = "blocks"

// BlockDecorator decorates one block. It runs with the page lock held and
// must not block on I/O.
type BlockDecorator interface {
	Decorate(ctx context.Context, block *html.Node) error
}

// BlockDecoratorFunc adapts a function to BlockDecorator.
type BlockDecoratorFunc func(ctx context.Context, block *html.Node) error

func (f BlockDecoratorFunc) Decorate(ctx context.Context, block *html.Node) error {
	return f(ctx, block)
}

// Resources loads page resources on the edge.
type Resources struct {
	lib        *aem.Library
	fragments  fragment.Source
	pipelines  decorate.Factory
	blocks     *registry.Registry[BlockDecorator]
	headerPath string
	footerPath string
	observer   outcome.Observer
	logger     *slog.Logger
}

// Option configures Resources.
type Option func(*Resources)

// WithBlockDecorators sets the block decorator registry.
func WithBlockDecorators(r *registry.Registry[BlockDecorator]) Option {
	return func(res *Resources) { res.blocks = r }
}

// WithFragmentPaths overrides the default header and footer fragment paths.
func WithFragmentPaths(header, footer string) Option {
	return func(res *Resources) {
		if header != "" {
			res.headerPath = header
		}
		if footer != "" {
			res.footerPath = footer
		}
	}
}

// WithObserver sets the observer receiving per-block results.
func WithObserver(o outcome.Observer) Option {
	return func(res *Resources) { res.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(res *Resources) { res.logger = l }
}

// New returns Resources decorating fragments with pipelines from factory.
func New(lib *aem.Library, fragments fragment.Source, pipelines decorate.Factory, opts ...Option) *Resources {
	r := &Resources{
		lib:        lib,
		fragments:  fragments,
		pipelines:  pipelines,
		blocks:     registry.New[BlockDecorator]("block decorator"),
		headerPath: "/nav",
		footerPath: "/footer",
		observer:   outcome.Discard,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resources) LoadCSS(_ context.Context, p *page.Page, href string) error {
	p.Do(func(doc *html.Node) { aem.LoadCSS(doc, href) })
	return nil
}

// LoadBlocks loads every block in main in document order, updating section
// statuses as blocks finish.
func (r *Resources) LoadBlocks(ctx context.Context, p *page.Page) error {
	var blocks []*html.Node
	p.Do(func(doc *html.Node) {
		main := aem.Main(doc)
		aem.UpdateSectionsStatus(main)
		blocks = dom.QuerySelectorAll(main, "div.block")
	})
	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return errors.WrapError(err, errors.CategoryRuntime, "block loading cancelled").Build()
		}
		p.Do(func(doc *html.Node) {
			r.loadBlock(ctx, doc, block)
			aem.UpdateSectionsStatus(aem.Main(doc))
		})
	}
	return nil
}

// loadBlock runs with the page lock held. Decorator failures are reported
// and the block is still marked loaded.
func (r *Resources) loadBlock(ctx context.Context, doc, block *html.Node) {
	switch dom.Attr(block, "data-block-status") {
	case aem.StatusLoading, aem.StatusLoaded:
		return
	}
	name := aem.BlockName(block)
	dom.SetAttr(block, "data-block-status", aem.StatusLoading)
	aem.LoadCSS(doc, r.lib.BlockCSSPath(name))
	aem.LoadScript(doc, r.lib.BlockScriptPath(name))
	r.observer.Observe(ctx, r.decorateBlock(ctx, name, block).InPhase(Phase))
	dom.SetAttr(block, "data-block-status", aem.StatusLoaded)
}

func (r *Resources) decorateBlock(ctx context.Context, name string, block *html.Node) (res outcome.Result) {
	if !r.blocks.Has(name) {
		return outcome.Skipped(name, "no decorator registered")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err := errors.DOMError("block decorator panicked").
				WithContext("block", name).
				WithContext("panic", fmt.Sprint(rec)).
				Build()
			r.logger.ErrorContext(ctx, "Failed to load block", logfields.Block(name), logfields.Error(err))
			res = outcome.Failed(name, err)
		}
	}()
	dec, err := r.blocks.Resolve(ctx, name)
	if err != nil {
		return outcome.Failed(name, err)
	}
	if err := dec.Decorate(ctx, block); err != nil {
		r.logger.ErrorContext(ctx, "Failed to load block", logfields.Block(name), logfields.Error(err))
		return outcome.Failed(name, err)
	}
	return outcome.Applied(name)
}

// WaitForLCP loads the first block when it is an LCP block, reveals the body
// and marks the first image in main as the LCP candidate.
func (r *Resources) WaitForLCP(ctx context.Context, p *page.Page, lcpBlocks []string) error {
	p.Do(func(doc *html.Node) {
		if block := dom.QuerySelector(doc, ".block"); block != nil && slices.Contains(lcpBlocks, dom.Attr(block, "data-block-name")) {
			r.loadBlock(ctx, doc, block)
		}
		if body := aem.Body(doc); body != nil {
			showElement(body)
		}
		if img := dom.QuerySelector(doc, "main img"); img != nil {
			dom.SetAttr(img, "loading", "eager")
			dom.SetAttr(img, "fetchpriority", "high")
		}
	})
	return ctx.Err()
}

// showElement drops a display declaration from the inline style.
func showElement(n *html.Node) {
	style := dom.Attr(n, "style")
	if style == "" {
		return
	}
	var kept []string
	for _, decl := range strings.Split(style, ";") {
		prop, _, _ := strings.Cut(decl, ":")
		if strings.TrimSpace(decl) == "" || strings.EqualFold(strings.TrimSpace(prop), "display") {
			continue
		}
		kept = append(kept, strings.TrimSpace(decl))
	}
	if len(kept) == 0 {
		dom.RemoveAttr(n, "style")
		return
	}
	dom.SetAttr(n, "style", strings.Join(kept, "; ")+";")
}

func (r *Resources) ScrollIntoView(_ context.Context, p *page.Page, id string) error {
	p.SetScrollTarget(id)
	return nil
}

// fragmentPath resolves a metadata value, which may be a full URL, to a site
// path.
func fragmentPath(p *page.Page, meta, fallback string) string {
	if meta == "" {
		return fallback
	}
	u, err := p.URL.Parse(meta)
	if err != nil || u.Path == "" {
		return fallback
	}
	return u.Path
}

// loadFragment fetches and decorates the fragment at path. The returned
// section nodes are detached and safe to insert under the page lock.
func (r *Resources) loadFragment(ctx context.Context, p *page.Page, path string) ([]*html.Node, error) {
	body, err := r.fragments.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	nodes, err := fragment.Parse(body)
	if err != nil {
		return nil, err
	}
	main := dom.Element("main")
	dom.Append(main, nodes...)
	base, err := p.URL.Parse(path)
	if err != nil {
		base = p.URL
	}
	rebaseMedia(main, base)

	pipeline := r.pipelines(p)
	p.Do(func(doc *html.Node) {
		pipeline.DecorateMain(ctx, main)
		aem.UpdateSectionsStatus(main)
		for _, block := range dom.QuerySelectorAll(main, "div.block") {
			r.loadBlock(ctx, doc, block)
		}
		aem.UpdateSectionsStatus(main)
	})
	sections := dom.ElementChildren(main)
	for _, s := range sections {
		dom.Remove(s)
	}
	return sections, nil
}

// rebaseMedia resolves fragment-relative media references against the
// fragment location.
func rebaseMedia(main *html.Node, base *url.URL) {
	for _, pair := range [][2]string{{"img", "src"}, {"source", "srcset"}} {
		for _, el := range dom.QuerySelectorAll(main, pair[0]+"["+pair[1]+"]") {
			v := dom.Attr(el, pair[1])
			if !strings.HasPrefix(v, "./media_") {
				continue
			}
			if u, err := base.Parse(v); err == nil {
				dom.SetAttr(el, pair[1], u.String())
			}
		}
	}
}
