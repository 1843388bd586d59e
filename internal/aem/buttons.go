package aem

import (
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/dom"
)

// DecorateButtons turns standalone links into buttons. A link alone in a
// <p> or <div> becomes a.button, <p><strong><a> a primary button and
// <p><em><a> a secondary one; the paragraph is marked button-container.
// Links wrapping an image and links whose text is their own URL are left as
// plain links.
func DecorateButtons(el *html.Node) {
	for _, a := range dom.QuerySelectorAll(el, "a") {
		text := strings.TrimSpace(dom.TextContent(a))
		if dom.Attr(a, "title") == "" && text != "" {
			dom.SetAttr(a, "title", text)
		}
		if dom.Attr(a, "href") == text || dom.QuerySelector(a, "img") != nil {
			continue
		}
		up := a.Parent
		if up == nil || childNodeCount(up) != 1 {
			continue
		}
		switch {
		case dom.IsElement(up, "p") || dom.IsElement(up, "div"):
			dom.SetAttr(a, "class", "button")
			dom.AddClass(up, "button-container")
		case dom.IsElement(up, "strong") && isLoneChildOfParagraph(up):
			dom.SetAttr(a, "class", "button primary")
			dom.AddClass(up.Parent, "button-container")
		case dom.IsElement(up, "em") && isLoneChildOfParagraph(up):
			dom.SetAttr(a, "class", "button secondary")
			dom.AddClass(up.Parent, "button-container")
		}
	}
}

func isLoneChildOfParagraph(n *html.Node) bool {
	return dom.IsElement(n.Parent, "p") && childNodeCount(n.Parent) == 1
}

func childNodeCount(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}
