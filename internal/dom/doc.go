// Package dom provides element-level helpers over golang.org/x/net/html trees:
// class lists, element siblings, tree surgery that mirrors the browser DOM
// (append moves a node, replaceWith swaps in place), document-order comparison
// and a small CSS selector engine.
package dom
