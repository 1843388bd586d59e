package edge

import (
	"context"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/aem"
	"git.home.luguber.info/inful/pageboot/internal/dom"
	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/page"
)

var navSectionClasses = []string{"brand", "sections", "tools"}

// LoadHeader fills the page <header> with the navigation fragment named by
// the nav metadata.
func (r *Resources) LoadHeader(ctx context.Context, p *page.Page) error {
	return r.loadChrome(ctx, p, "header", "nav", r.headerPath, func(block *html.Node, sections []*html.Node) {
		nav := dom.Element("nav", "id", "nav")
		for i, s := range sections {
			if i < len(navSectionClasses) {
				dom.AddClass(s, "nav-"+navSectionClasses[i])
			}
			dom.Append(nav, s)
		}
		dom.SetAttr(nav, "aria-expanded", "false")
		wrapper := dom.Element("div", "class", "nav-wrapper")
		dom.Append(wrapper, nav)
		dom.Append(block, wrapper)
	})
}

// LoadFooter fills the page <footer> with the fragment named by the footer
// metadata.
func (r *Resources) LoadFooter(ctx context.Context, p *page.Page) error {
	return r.loadChrome(ctx, p, "footer", "footer", r.footerPath, func(block *html.Node, sections []*html.Node) {
		wrapper := dom.Element("div")
		dom.Append(wrapper, sections...)
		dom.Append(block, wrapper)
	})
}

func (r *Resources) loadChrome(ctx context.Context, p *page.Page, tag, metaName, fallback string, fill func(block *html.Node, sections []*html.Node)) error {
	var (
		found bool
		meta  string
	)
	p.Do(func(doc *html.Node) {
		found = dom.QuerySelector(doc, tag) != nil
		meta = aem.GetMetadata(doc, metaName)
	})
	if !found {
		return errors.DOMError("page has no "+tag+" element").WithContext("url", p.URL.String()).Build()
	}

	path := fragmentPath(p, meta, fallback)
	sections, err := r.loadFragment(ctx, p, path)
	if err != nil {
		return err
	}

	p.Do(func(doc *html.Node) {
		container := dom.QuerySelector(doc, tag)
		if container == nil {
			return
		}
		block := aem.BuildBlock(tag)
		// The built block carries an empty row; chrome blocks hold the
		// fragment directly.
		for _, c := range dom.ElementChildren(block) {
			dom.Remove(c)
		}
		dom.Append(container, block)
		aem.DecorateBlock(block)
		fill(block, sections)
		r.loadBlock(ctx, doc, block)
	})
	return nil
}
