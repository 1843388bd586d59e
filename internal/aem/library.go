package aem

import "golang.org/x/net/html"

// Library binds the decoration functions to a code base path so it can be
// handed to the decoration pipeline as a single collaborator.
type Library struct {
	CodeBasePath string
}

// NewLibrary creates a Library serving icons and block assets from codeBasePath.
func NewLibrary(codeBasePath string) *Library {
	return &Library{CodeBasePath: codeBasePath}
}

func (l *Library) BuildBlock(name string, elems ...*html.Node) *html.Node {
	return BuildBlock(name, elems...)
}

func (l *Library) DecorateButtons(el *html.Node)    { DecorateButtons(el) }
func (l *Library) DecorateIcons(el *html.Node)      { DecorateIcons(el, l.CodeBasePath) }
func (l *Library) DecorateSections(main *html.Node) { DecorateSections(main) }
func (l *Library) DecorateBlocks(main *html.Node)   { DecorateBlocks(main) }

// BlockCSSPath returns the stylesheet path of a block.
func (l *Library) BlockCSSPath(name string) string {
	return l.CodeBasePath + "/blocks/" + name + "/" + name + ".css"
}

// BlockScriptPath returns the module script path of a block.
func (l *Library) BlockScriptPath(name string) string {
	return l.CodeBasePath + "/blocks/" + name + "/" + name + ".js"
}
