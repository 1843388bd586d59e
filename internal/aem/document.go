package aem

import (
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/dom"
)

// Status values used in data-section-status and data-block-status.
const (
	StatusInitialized = "initialized"
	StatusLoading     = "loading"
	StatusLoaded      = "loaded"
)

// Head returns the document <head>.
func Head(doc *html.Node) *html.Node { return dom.FindElement(doc, "head") }

// Body returns the document <body>.
func Body(doc *html.Node) *html.Node { return dom.FindElement(doc, "body") }

// Main returns the document <main>, or nil.
func Main(doc *html.Node) *html.Node { return dom.FindElement(doc, "main") }

// GetMetadata returns the content of the named <meta> tags in the document
// head, joined with ", " when the tag is repeated. Names containing a colon
// (og:title) are looked up by property.
func GetMetadata(doc *html.Node, name string) string {
	if name == "" {
		return ""
	}
	attr := "name"
	if strings.Contains(name, ":") {
		attr = "property"
	}
	var values []string
	for _, m := range dom.QuerySelectorAll(Head(doc), "meta") {
		if dom.Attr(m, attr) == name {
			values = append(values, dom.Attr(m, "content"))
		}
	}
	return strings.Join(values, ", ")
}

// ToClassName sanitizes a string for use as a CSS class name.
func ToClassName(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// DecorateTemplateAndTheme adds the template and theme metadata values as
// body classes.
func DecorateTemplateAndTheme(doc *html.Node) {
	body := Body(doc)
	if body == nil {
		return
	}
	for _, name := range []string{"template", "theme"} {
		value := GetMetadata(doc, name)
		if value == "" {
			continue
		}
		for _, c := range strings.Split(value, ",") {
			dom.AddClass(body, ToClassName(strings.TrimSpace(c)))
		}
	}
}

// LoadCSS adds a stylesheet link to the head unless one with the same href
// exists. It reports whether a link was added.
func LoadCSS(doc *html.Node, href string) bool {
	head := Head(doc)
	if head == nil || href == "" {
		return false
	}
	for _, l := range dom.QuerySelectorAll(head, "link") {
		if dom.Attr(l, "href") == href {
			return false
		}
	}
	dom.Append(head, dom.Element("link", "rel", "stylesheet", "href", href))
	return true
}

// LoadScript adds a module script to the head unless one with the same src
// exists. It reports whether a script was added.
func LoadScript(doc *html.Node, src string) bool {
	head := Head(doc)
	if head == nil || src == "" {
		return false
	}
	for _, s := range dom.QuerySelectorAll(head, "script") {
		if dom.Attr(s, "src") == src {
			return false
		}
	}
	dom.Append(head, dom.Element("script", "type", "module", "src", src))
	return true
}
