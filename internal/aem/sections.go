package aem

import (
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/dom"
)

// DecorateSections turns every undecorated direct child <div> of main into a
// section: default content is grouped into .default-content-wrapper divs,
// each classed div (a block) gets its own wrapper, and a section-metadata
// block is applied to the section and removed.
func DecorateSections(main *html.Node) {
	for _, section := range dom.ElementChildren(main) {
		if !dom.IsElement(section, "div") || dom.HasAttr(section, "data-section-status") {
			continue
		}

		var wrappers []*html.Node
		defaultContent := false
		for _, e := range dom.ElementChildren(section) {
			isBlock := dom.IsElement(e, "div") && dom.Attr(e, "class") != ""
			if isBlock || !defaultContent {
				wrapper := dom.Element("div")
				wrappers = append(wrappers, wrapper)
				defaultContent = !isBlock
				if defaultContent {
					dom.AddClass(wrapper, "default-content-wrapper")
				}
			}
			dom.Append(wrappers[len(wrappers)-1], e)
		}
		dom.Append(section, wrappers...)

		dom.AddClass(section, "section")
		dom.SetAttr(section, "data-section-status", StatusInitialized)
		dom.SetAttr(section, "style", "display: none;")

		if meta := dom.QuerySelector(section, "div.section-metadata"); meta != nil {
			for key, value := range ReadBlockConfig(meta) {
				if key == "style" {
					for _, style := range strings.Split(value, ",") {
						dom.AddClass(section, ToClassName(strings.TrimSpace(style)))
					}
					continue
				}
				dom.SetAttr(section, "data-"+key, value)
			}
			dom.Remove(meta.Parent)
		}
	}
}

// UpdateSectionsStatus walks the sections in order: a section whose blocks
// have all loaded is marked loaded and made visible; the first section with a
// pending block is marked loading and ends the walk.
func UpdateSectionsStatus(main *html.Node) {
	for _, section := range dom.ElementChildren(main) {
		if !dom.HasClass(section, "section") || dom.Attr(section, "data-section-status") == StatusLoaded {
			continue
		}
		if hasPendingBlock(section) {
			dom.SetAttr(section, "data-section-status", StatusLoading)
			return
		}
		dom.SetAttr(section, "data-section-status", StatusLoaded)
		dom.RemoveAttr(section, "style")
	}
}

func hasPendingBlock(section *html.Node) bool {
	for _, b := range dom.QuerySelectorAll(section, ".block") {
		switch dom.Attr(b, "data-block-status") {
		case StatusInitialized, StatusLoading:
			return true
		}
	}
	return false
}
