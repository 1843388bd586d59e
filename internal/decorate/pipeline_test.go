package decorate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/aem"
	"git.home.luguber.info/inful/pageboot/internal/dom"
	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/hero"
	"git.home.luguber.info/inful/pageboot/internal/outcome"
)

type recordingDecorator struct {
	calls []string
}

func (d *recordingDecorator) DecorateButtons(*html.Node)  { d.calls = append(d.calls, StepButtons) }
func (d *recordingDecorator) DecorateIcons(*html.Node)    { d.calls = append(d.calls, StepIcons) }
func (d *recordingDecorator) DecorateSections(*html.Node) { d.calls = append(d.calls, StepSections) }
func (d *recordingDecorator) DecorateBlocks(*html.Node)   { d.calls = append(d.calls, StepBlocks) }

type fakeAutoBlock struct {
	name  string
	calls *[]string
	build func() outcome.Result
}

func (f fakeAutoBlock) Name() string { return f.name }

func (f fakeAutoBlock) Build(context.Context, *html.Node) outcome.Result {
	*f.calls = append(*f.calls, f.name)
	return f.build()
}

func TestDecorateMain_Order(t *testing.T) {
	dec := &recordingDecorator{}
	ab := fakeAutoBlock{name: "hero", calls: &dec.calls, build: func() outcome.Result { return outcome.Applied("hero") }}
	collector := &outcome.Collector{}

	results := NewPipeline(dec, collector, ab).DecorateMain(context.Background(), dom.Element("main"))

	assert.Equal(t, []string{StepButtons, StepIcons, "hero", StepSections, StepBlocks}, dec.calls)
	require.Len(t, results, 5)
	assert.Equal(t, results, collector.Results)
	for _, r := range results {
		assert.Equal(t, Phase, r.Phase)
		assert.Equal(t, outcome.StatusApplied, r.Status)
	}
}

func TestDecorateMain_PanickingAutoBlockDoesNotAbort(t *testing.T) {
	dec := &recordingDecorator{}
	ab := fakeAutoBlock{name: "hero", calls: &dec.calls, build: func() outcome.Result {
		var n *html.Node
		_ = n.FirstChild
		return outcome.Applied("hero")
	}}
	collector := &outcome.Collector{}

	NewPipeline(dec, collector, ab).DecorateMain(context.Background(), dom.Element("main"))

	assert.Equal(t, []string{StepButtons, StepIcons, "hero", StepSections, StepBlocks}, dec.calls)
	r, ok := collector.Find(Phase, "hero")
	require.True(t, ok)
	assert.Equal(t, outcome.StatusFailed, r.Status)
	assert.Equal(t, errors.CategoryDOM, errors.GetCategory(r.Err))
}

func TestDecorateMain_NoMain(t *testing.T) {
	dec := &recordingDecorator{}
	results := NewPipeline(dec, nil).DecorateMain(context.Background(), nil)
	require.Len(t, results, 1)
	assert.Equal(t, outcome.StatusSkipped, results[0].Status)
	assert.Empty(t, dec.calls)
}

func TestDecorateMain_WithLibraryAndHero(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<html><body><main>
<div><h1>Welcome</h1><p><picture><img src="hero.jpg"></picture></p><p><a href="/start">Get started</a></p></div>
<div><h2>More</h2><div class="cards"><div><div>Card</div></div></div></div>
</main></body></html>`))
	require.NoError(t, err)
	main := dom.FindElement(doc, "main")

	p := NewPipeline(aem.NewLibrary(""), nil, hero.NewBuilder(nil))
	results := p.DecorateMain(context.Background(), main)
	for _, r := range results {
		assert.True(t, r.OK(), r.String())
	}

	sections := dom.ElementChildren(main)
	require.Len(t, sections, 2, "emptied source section is replaced by the hero section")
	assert.True(t, dom.HasClass(sections[0], "hero-container"))

	heroBlock := dom.QuerySelector(sections[0], ".hero.block")
	require.NotNil(t, heroBlock)
	assert.Equal(t, "hero", dom.Attr(heroBlock, "data-block-name"))
	assert.NotNil(t, dom.QuerySelector(heroBlock, ".hero-headings h1"))

	cards := dom.QuerySelector(main, ".cards.block")
	require.NotNil(t, cards)
	assert.True(t, dom.HasClass(sections[1], "cards-container"))
}

func TestDecorateMain_HeroCTAMarkerIsReplacedByBlockButtons(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<html><body><main>
<div><h1>Welcome</h1><p><a href="/start">Get started</a></p><p><picture><img src="hero.jpg"></picture></p></div>
</main></body></html>`))
	require.NoError(t, err)
	main := dom.FindElement(doc, "main")

	var marked bool
	cta := dom.QuerySelector(main, "a")
	spy := fakeAutoBlock{name: "cta-check", calls: &[]string{}, build: func() outcome.Result {
		marked = dom.HasClass(cta, "cta")
		return outcome.Applied("cta-check")
	}}

	p := NewPipeline(aem.NewLibrary(""), nil, hero.NewBuilder(nil), spy)
	for _, r := range p.DecorateMain(context.Background(), main) {
		assert.True(t, r.OK(), r.String())
	}

	assert.True(t, marked, "hero marks the link next to the heading as cta")
	link := dom.QuerySelector(main, ".hero.block .hero-headings a")
	require.NotNil(t, link)
	assert.Equal(t, "button", dom.Attr(link, "class"), "block decoration rewrites the link classes")
	assert.True(t, dom.HasClass(link.Parent, "button-container"))
}
