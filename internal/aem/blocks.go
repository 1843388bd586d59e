package aem

import (
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/dom"
)

// BuildBlock creates a block element with a single row and cell holding elems:
//
//	<div class="name"><div><div>elems...</div></div></div>
func BuildBlock(name string, elems ...*html.Node) *html.Node {
	block := dom.Element("div", "class", name)
	row := dom.Element("div")
	cell := dom.Element("div")
	dom.Append(cell, elems...)
	dom.Append(row, cell)
	dom.Append(block, row)
	return block
}

// BlockName returns the block name recorded on a decorated block, falling
// back to its first class.
func BlockName(block *html.Node) string {
	if name := dom.Attr(block, "data-block-name"); name != "" {
		return name
	}
	if classes := dom.Classes(block); len(classes) > 0 {
		return classes[0]
	}
	return ""
}

// DecorateBlocks decorates every block (div.section > div > div) in main.
func DecorateBlocks(main *html.Node) {
	for _, block := range dom.QuerySelectorAll(main, "div.section > div > div") {
		DecorateBlock(block)
	}
}

// DecorateBlock marks a block element: its first class becomes the block
// name, text in its cells is wrapped in paragraphs, and its wrapper and
// section get <name>-wrapper and <name>-container classes.
func DecorateBlock(block *html.Node) {
	classes := dom.Classes(block)
	if len(classes) == 0 || dom.HasAttr(block, "data-block-status") {
		return
	}
	name := classes[0]
	dom.AddClass(block, "block")
	dom.SetAttr(block, "data-block-name", name)
	dom.SetAttr(block, "data-block-status", StatusInitialized)
	wrapTextNodes(block)
	if wrapper := block.Parent; wrapper != nil && wrapper.Type == html.ElementNode {
		dom.AddClass(wrapper, name+"-wrapper")
	}
	if section := dom.Closest(block, ".section"); section != nil {
		dom.AddClass(section, name+"-container")
	}
	DecorateButtons(block)
}

var validWrappers = map[string]bool{
	"p": true, "pre": true, "ul": true, "ol": true, "picture": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// wrapTextNodes wraps the content of block cells in a <p> unless the cell
// already starts with a block-level wrapper. A lone picture with siblings or
// text is wrapped too.
func wrapTextNodes(block *html.Node) {
	for _, row := range dom.ElementChildren(block) {
		if !dom.IsElement(row, "div") {
			continue
		}
		for _, cell := range dom.ElementChildren(row) {
			if !dom.IsElement(cell, "div") || cell.FirstChild == nil {
				continue
			}
			first := dom.FirstElementChild(cell)
			hasWrapper := first != nil && validWrappers[first.Data]
			switch {
			case !hasWrapper:
				wrapCell(cell)
			case first.Data == "picture" &&
				(len(dom.ElementChildren(cell)) > 1 || strings.TrimSpace(dom.TextContent(cell)) != ""):
				wrapCell(cell)
			}
		}
	}
}

func wrapCell(cell *html.Node) {
	p := dom.Element("p")
	dom.MoveChildren(p, cell)
	dom.Append(cell, p)
}

// ReadBlockConfig reads a two-column key/value block. Keys are class-name
// sanitized; values are link hrefs, image sources, paragraph texts or the
// cell text, in that order of preference. Multiple values are joined with ", ".
func ReadBlockConfig(block *html.Node) map[string]string {
	config := make(map[string]string)
	for _, row := range dom.ElementChildren(block) {
		if !dom.IsElement(row, "div") {
			continue
		}
		cols := dom.ElementChildren(row)
		if len(cols) < 2 {
			continue
		}
		name := ToClassName(dom.TextContent(cols[0]))
		if name == "" {
			continue
		}
		col := cols[1]
		var values []string
		switch {
		case dom.QuerySelector(col, "a") != nil:
			for _, a := range dom.QuerySelectorAll(col, "a") {
				values = append(values, dom.Attr(a, "href"))
			}
		case dom.QuerySelector(col, "img") != nil:
			for _, img := range dom.QuerySelectorAll(col, "img") {
				values = append(values, dom.Attr(img, "src"))
			}
		case dom.QuerySelector(col, "p") != nil:
			for _, p := range dom.QuerySelectorAll(col, "p") {
				values = append(values, strings.TrimSpace(dom.TextContent(p)))
			}
		default:
			values = append(values, strings.TrimSpace(dom.TextContent(col)))
		}
		config[name] = strings.Join(values, ", ")
	}
	return config
}
