package loader

import (
	"context"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/page"
	"git.home.luguber.info/inful/pageboot/internal/rum"
)

// Resources loads the page's external resources. Implementations take the
// page lock themselves around DOM access and must not hold it during I/O.
type Resources interface {
	LoadCSS(ctx context.Context, p *page.Page, href string) error
	LoadHeader(ctx context.Context, p *page.Page) error
	LoadFooter(ctx context.Context, p *page.Page) error
	LoadBlocks(ctx context.Context, p *page.Page) error
	WaitForLCP(ctx context.Context, p *page.Page, lcpBlocks []string) error
	ScrollIntoView(ctx context.Context, p *page.Page, id string) error
}

// Analytics receives sampling checkpoints.
type Analytics interface {
	Sample(ctx context.Context, p *page.Page, checkpoint string, data rum.Data)
	// Observe receives values captured under the page lock.
	Observe(ctx context.Context, p *page.Page, observed []rum.Data)
}

// Template decorates pages using a named template. It runs with the page
// lock held.
type Template interface {
	Decorate(ctx context.Context, doc *html.Node) error
}

// TemplateFunc adapts a function to Template.
type TemplateFunc func(ctx context.Context, doc *html.Node) error

func (f TemplateFunc) Decorate(ctx context.Context, doc *html.Node) error { return f(ctx, doc) }

// DelayedModule runs non-critical work after the delayed timer fires.
type DelayedModule interface {
	Run(ctx context.Context, p *page.Page) error
}

// DelayedFunc adapts a function to DelayedModule.
type DelayedFunc func(ctx context.Context, p *page.Page) error

func (f DelayedFunc) Run(ctx context.Context, p *page.Page) error { return f(ctx, p) }

// CWVModule is the built-in delayed module: it reports the cwv checkpoint.
type CWVModule struct {
	Analytics Analytics
}

func (m CWVModule) Run(ctx context.Context, p *page.Page) error {
	m.Analytics.Sample(ctx, p, rum.CheckpointCWV, rum.Data{})
	return nil
}

type noopAnalytics struct{}

func (noopAnalytics) Sample(context.Context, *page.Page, string, rum.Data) {}
func (noopAnalytics) Observe(context.Context, *page.Page, []rum.Data)      {}
