package aem

import (
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/dom"
)

// DecorateIcons appends an <img> to every span.icon carrying an icon-<name>
// class. Spans that already hold their icon are skipped.
func DecorateIcons(el *html.Node, codeBasePath string) {
	for _, span := range dom.QuerySelectorAll(el, "span.icon") {
		name := iconName(span)
		if name == "" || dom.QuerySelector(span, "img[data-icon-name]") != nil {
			continue
		}
		dom.Append(span, dom.Element("img",
			"data-icon-name", name,
			"src", codeBasePath+"/icons/"+name+".svg",
			"alt", "",
			"loading", "lazy",
		))
	}
}

func iconName(span *html.Node) string {
	for _, c := range dom.Classes(span) {
		if strings.HasPrefix(c, "icon-") {
			return strings.TrimPrefix(c, "icon-")
		}
	}
	return ""
}
