package decorate

import (
	"time"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/hero"
	"git.home.luguber.info/inful/pageboot/internal/outcome"
	"git.home.luguber.info/inful/pageboot/internal/page"
)

// Factory builds the pipeline for one page. Auto-blocks that defer work bind
// to the page's timer, so pipelines are not shared between pages.
type Factory func(p *page.Page) *Pipeline

// NewFactory returns a Factory running the hero auto-block. A zero
// videoDelay keeps the hero default.
func NewFactory(decorator Decorator, observer outcome.Observer, videoDelay time.Duration) Factory {
	return func(p *page.Page) *Pipeline {
		b := hero.NewBuilder(func(d time.Duration, fn func()) error {
			return p.Defer(d, func(*html.Node) { fn() })
		})
		if videoDelay > 0 {
			b.VideoDelay = videoDelay
		}
		return NewPipeline(decorator, observer, b)
	}
}
