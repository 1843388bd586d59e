package edge

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/aem"
	"git.home.luguber.info/inful/pageboot/internal/decorate"
	"git.home.luguber.info/inful/pageboot/internal/dom"
	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/outcome"
	"git.home.luguber.info/inful/pageboot/internal/page"
	"git.home.luguber.info/inful/pageboot/internal/registry"
)

type mapSource map[string]string

func (m mapSource) Fetch(_ context.Context, path string) (string, error) {
	body, ok := m[path]
	if !ok {
		return "", errors.NotFoundError("fragment not found").WithContext("path", path).Build()
	}
	return body, nil
}

const pageHTML = `<html><head>%s</head><body style="display: none;"><header></header><main>
<div><div class="hero"><div><div><picture><img src="hero.jpg"></picture></div></div></div></div>
<div><p>Text</p><div class="cards"><div><div>Card</div></div></div></div>
</main><footer></footer></body></html>`

func newDecoratedPage(t *testing.T, head string) *page.Page {
	t.Helper()
	src := strings.Replace(pageHTML, "%s", head, 1)
	p, err := page.Parse(strings.NewReader(src), "https://www.example.com/blog/post", page.Options{})
	require.NoError(t, err)
	p.Do(func(doc *html.Node) {
		main := aem.Main(doc)
		aem.DecorateSections(main)
		aem.DecorateBlocks(main)
	})
	return p
}

func newResources(fragments mapSource, opts ...Option) *Resources {
	lib := aem.NewLibrary("/cb")
	return New(lib, fragments, decorate.NewFactory(lib, nil, 0), opts...)
}

func TestLoadBlocks(t *testing.T) {
	blocks := registry.New[BlockDecorator]("block decorator")
	blocks.RegisterValue("cards", BlockDecoratorFunc(func(_ context.Context, block *html.Node) error {
		dom.AddClass(block, "cards-decorated")
		return nil
	}))
	collector := &outcome.Collector{}
	r := newResources(nil, WithBlockDecorators(blocks), WithObserver(collector))
	p := newDecoratedPage(t, "")

	require.NoError(t, r.LoadBlocks(context.Background(), p))

	p.Do(func(doc *html.Node) {
		for _, b := range dom.QuerySelectorAll(doc, "div.block") {
			assert.Equal(t, aem.StatusLoaded, dom.Attr(b, "data-block-status"), aem.BlockName(b))
		}
		for _, s := range dom.QuerySelectorAll(doc, "main > .section") {
			assert.Equal(t, aem.StatusLoaded, dom.Attr(s, "data-section-status"))
			assert.False(t, dom.HasAttr(s, "style"))
		}
		assert.NotNil(t, dom.QuerySelector(doc, "div.cards.cards-decorated"))
		assert.NotNil(t, dom.QuerySelector(doc, `head link[href="/cb/blocks/cards/cards.css"]`))
		assert.NotNil(t, dom.QuerySelector(doc, `head script[src="/cb/blocks/hero/hero.js"]`))
	})

	cards, ok := collector.Find(Phase, "cards")
	require.True(t, ok)
	assert.Equal(t, outcome.StatusApplied, cards.Status)
	hero, ok := collector.Find(Phase, "hero")
	require.True(t, ok)
	assert.Equal(t, outcome.StatusSkipped, hero.Status)
}

func TestLoadBlocks_DecoratorFailures(t *testing.T) {
	blocks := registry.New[BlockDecorator]("block decorator")
	blocks.RegisterValue("hero", BlockDecoratorFunc(func(context.Context, *html.Node) error {
		return stderrors.New("boom")
	}))
	blocks.RegisterValue("cards", BlockDecoratorFunc(func(context.Context, *html.Node) error {
		panic("bad block")
	}))
	collector := &outcome.Collector{}
	r := newResources(nil, WithBlockDecorators(blocks), WithObserver(collector))
	p := newDecoratedPage(t, "")

	require.NoError(t, r.LoadBlocks(context.Background(), p))

	for _, name := range []string{"hero", "cards"} {
		res, ok := collector.Find(Phase, name)
		require.True(t, ok, name)
		assert.Equal(t, outcome.StatusFailed, res.Status, name)
	}
	p.Do(func(doc *html.Node) {
		assert.Equal(t, aem.StatusLoaded, dom.Attr(dom.QuerySelector(doc, "div.cards"), "data-block-status"))
	})
}

func TestLoadBlocks_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newResources(nil)
	p := newDecoratedPage(t, "")

	err := r.LoadBlocks(ctx, p)
	assert.Equal(t, errors.CategoryRuntime, errors.GetCategory(err))
}

func TestWaitForLCP(t *testing.T) {
	t.Run("loads first block when listed", func(t *testing.T) {
		r := newResources(nil)
		p := newDecoratedPage(t, "")
		require.NoError(t, r.WaitForLCP(context.Background(), p, []string{"hero"}))

		p.Do(func(doc *html.Node) {
			assert.Equal(t, aem.StatusLoaded, dom.Attr(dom.QuerySelector(doc, "div.hero"), "data-block-status"))
			assert.Equal(t, aem.StatusInitialized, dom.Attr(dom.QuerySelector(doc, "div.cards"), "data-block-status"))
			assert.False(t, dom.HasAttr(aem.Body(doc), "style"))
			img := dom.QuerySelector(doc, "main img")
			assert.Equal(t, "eager", dom.Attr(img, "loading"))
			assert.Equal(t, "high", dom.Attr(img, "fetchpriority"))
		})
	})

	t.Run("leaves blocks alone otherwise", func(t *testing.T) {
		r := newResources(nil)
		p := newDecoratedPage(t, "")
		require.NoError(t, r.WaitForLCP(context.Background(), p, nil))
		p.Do(func(doc *html.Node) {
			assert.Equal(t, aem.StatusInitialized, dom.Attr(dom.QuerySelector(doc, "div.hero"), "data-block-status"))
		})
	})
}

func TestShowElement(t *testing.T) {
	n := dom.Element("body", "style", "color: red; display: none;")
	showElement(n)
	assert.Equal(t, "color: red;", dom.Attr(n, "style"))
}

func TestLoadHeader(t *testing.T) {
	fragments := mapSource{
		"/custom-nav": `<div><p><a href="/">Brand</a></p></div><div><ul><li>Blog</li></ul></div><div><p><img src="./media_123.png"></p></div>`,
	}
	r := newResources(fragments)
	p := newDecoratedPage(t, `<meta name="nav" content="https://www.example.com/custom-nav">`)

	require.NoError(t, r.LoadHeader(context.Background(), p))

	p.Do(func(doc *html.Node) {
		header := dom.QuerySelector(doc, "header")
		assert.True(t, dom.HasClass(header, "header-wrapper"))
		block := dom.QuerySelector(header, "div.header.block")
		require.NotNil(t, block)
		assert.Equal(t, aem.StatusLoaded, dom.Attr(block, "data-block-status"))
		assert.NotNil(t, dom.QuerySelector(block, ".nav-wrapper > nav#nav > .nav-brand"))
		assert.NotNil(t, dom.QuerySelector(block, "nav > .nav-sections"))
		img := dom.QuerySelector(block, ".nav-tools img")
		require.NotNil(t, img)
		assert.Equal(t, "https://www.example.com/media_123.png", dom.Attr(img, "src"))
		assert.NotNil(t, dom.QuerySelector(doc, `head link[href="/cb/blocks/header/header.css"]`))
	})
}

func TestLoadFooter(t *testing.T) {
	r := newResources(mapSource{"/footer": `<div><p>© Example</p></div>`})
	p := newDecoratedPage(t, "")

	require.NoError(t, r.LoadFooter(context.Background(), p))
	p.Do(func(doc *html.Node) {
		assert.Contains(t, dom.TextContent(dom.QuerySelector(doc, "footer div.footer")), "© Example")
	})
}

func TestLoadFooter_Failures(t *testing.T) {
	t.Run("missing fragment", func(t *testing.T) {
		r := newResources(mapSource{})
		p := newDecoratedPage(t, "")
		err := r.LoadFooter(context.Background(), p)
		assert.Equal(t, errors.CategoryNotFound, errors.GetCategory(err))
	})

	t.Run("no footer element", func(t *testing.T) {
		r := newResources(mapSource{"/footer": `<div></div>`})
		p, err := page.Parse(strings.NewReader(`<html><body><main></main></body></html>`), "", page.Options{})
		require.NoError(t, err)
		err = r.LoadFooter(context.Background(), p)
		assert.Equal(t, errors.CategoryDOM, errors.GetCategory(err))
	})
}

func TestWithFragmentPaths(t *testing.T) {
	r := newResources(mapSource{"/global/footer": `<div><p>Global</p></div>`}, WithFragmentPaths("", "/global/footer"))
	p := newDecoratedPage(t, "")
	require.NoError(t, r.LoadFooter(context.Background(), p))
	assert.Equal(t, "/nav", r.headerPath)
}
