package dom

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Selector is a compiled, comma-separated CSS selector group.
//
// Supported syntax:
//   - tag: "main", "div", "*"
//   - .class (repeatable): ".section", "div.hero.block"
//   - #id: "#main-content"
//   - [attr] and [attr=val]: "div[data-block-name]", `meta[name="template"]`
//   - descendant (space) and child (>) combinators
//   - groups: "h2,h3,h4"
type Selector struct {
	source string
	groups []complexSelector
}

type complexSelector struct {
	parts []compound
	// combinators[i] joins parts[i] and parts[i+1]: ' ' descendant, '>' child.
	combinators []byte
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrSelector
}

type attrSelector struct {
	key    string
	val    string
	hasVal bool
}

var compiledCache sync.Map

// Compile parses a selector group.
func Compile(sel string) (Selector, error) {
	s := Selector{source: sel}
	for _, group := range splitGroups(sel) {
		group = strings.TrimSpace(group)
		if group == "" {
			return Selector{}, fmt.Errorf("empty selector in %q", sel)
		}
		cs, err := parseComplex(group)
		if err != nil {
			return Selector{}, fmt.Errorf("parse selector %q: %w", sel, err)
		}
		s.groups = append(s.groups, cs)
	}
	if len(s.groups) == 0 {
		return Selector{}, fmt.Errorf("empty selector")
	}
	return s, nil
}

// MustCompile is like Compile but panics on invalid input. Compiled selectors
// are cached, so static selectors can be passed as strings at call sites.
func MustCompile(sel string) Selector {
	if cached, ok := compiledCache.Load(sel); ok {
		return cached.(Selector)
	}
	s, err := Compile(sel)
	if err != nil {
		panic(err)
	}
	compiledCache.Store(sel, s)
	return s
}

// String returns the selector source.
func (s Selector) String() string { return s.source }

// Match reports whether the element n matches any group of the selector.
func (s Selector) Match(n *html.Node) bool {
	for _, g := range s.groups {
		if g.matchAt(n, len(g.parts)-1) {
			return true
		}
	}
	return false
}

func (c complexSelector) matchAt(n *html.Node, i int) bool {
	if n == nil || !c.parts[i].match(n) {
		return false
	}
	if i == 0 {
		return true
	}
	if c.combinators[i-1] == '>' {
		return c.matchAt(n.Parent, i-1)
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if c.matchAt(p, i-1) {
			return true
		}
	}
	return false
}

func (c compound) match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" && Attr(n, "id") != c.id {
		return false
	}
	for _, class := range c.classes {
		if !HasClass(n, class) {
			return false
		}
	}
	for _, a := range c.attrs {
		if !HasAttr(n, a.key) {
			return false
		}
		if a.hasVal && Attr(n, a.key) != a.val {
			return false
		}
	}
	return true
}

// splitGroups splits on commas that are not inside an attribute selector.
func splitGroups(sel string) []string {
	var groups []string
	depth, start := 0, 0
	for i := 0; i < len(sel); i++ {
		switch sel[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				groups = append(groups, sel[start:i])
				start = i + 1
			}
		}
	}
	return append(groups, sel[start:])
}

func parseComplex(s string) (complexSelector, error) {
	var (
		cs      complexSelector
		cur     strings.Builder
		pending byte
	)

	flush := func() error {
		if cur.Len() == 0 {
			return nil
		}
		c, err := parseCompound(cur.String())
		cur.Reset()
		if err != nil {
			return err
		}
		if len(cs.parts) > 0 {
			comb := pending
			if comb == 0 {
				comb = ' '
			}
			cs.combinators = append(cs.combinators, comb)
		} else if pending == '>' {
			return fmt.Errorf("leading combinator")
		}
		cs.parts = append(cs.parts, c)
		pending = 0
		return nil
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return cs, fmt.Errorf("unterminated attribute selector")
			}
			cur.WriteString(s[i : i+end+1])
			i += end
		case ch == '>':
			if err := flush(); err != nil {
				return cs, err
			}
			pending = '>'
		case ch == ' ' || ch == '\t' || ch == '\n':
			if err := flush(); err != nil {
				return cs, err
			}
			if pending == 0 && len(cs.parts) > 0 {
				pending = ' '
			}
		default:
			cur.WriteByte(ch)
		}
	}
	if err := flush(); err != nil {
		return cs, err
	}
	if pending == '>' {
		return cs, fmt.Errorf("trailing combinator")
	}
	if len(cs.parts) == 0 {
		return cs, fmt.Errorf("empty selector")
	}
	return cs, nil
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	if i < len(s) && s[i] == '*' {
		i++
	} else {
		tag, n := readIdent(s[i:])
		c.tag = strings.ToLower(tag)
		i += n
	}
	for i < len(s) {
		switch s[i] {
		case '.':
			class, n := readIdent(s[i+1:])
			if n == 0 {
				return c, fmt.Errorf("empty class in %q", s)
			}
			c.classes = append(c.classes, class)
			i += n + 1
		case '#':
			id, n := readIdent(s[i+1:])
			if n == 0 {
				return c, fmt.Errorf("empty id in %q", s)
			}
			c.id = id
			i += n + 1
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("unterminated attribute selector in %q", s)
			}
			c.attrs = append(c.attrs, parseAttr(s[i+1:i+end]))
			i += end + 1
		default:
			return c, fmt.Errorf("unexpected %q in %q", s[i], s)
		}
	}
	return c, nil
}

func parseAttr(s string) attrSelector {
	if eq := strings.IndexByte(s, '='); eq >= 0 {
		return attrSelector{
			key:    strings.TrimSpace(s[:eq]),
			val:    strings.Trim(strings.TrimSpace(s[eq+1:]), `"'`),
			hasVal: true,
		}
	}
	return attrSelector{key: strings.TrimSpace(s)}
}

func readIdent(s string) (string, int) {
	n := 0
	for n < len(s) {
		ch := s[n]
		if ch == '-' || ch == '_' || (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
			n++
			continue
		}
		break
	}
	return s[:n], n
}

// QuerySelectorAll returns all descendants of root matching sel, in document order.
func QuerySelectorAll(root *html.Node, sel string) []*html.Node {
	if root == nil {
		return nil
	}
	s := MustCompile(sel)
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if s.Match(c) {
				results = append(results, c)
			}
			walk(c)
		}
	}
	walk(root)
	return results
}

// QuerySelector returns the first descendant of root matching sel, or nil.
func QuerySelector(root *html.Node, sel string) *html.Node {
	if root == nil {
		return nil
	}
	s := MustCompile(sel)
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if s.Match(c) {
				found = c
				return true
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return found
}

// Matches reports whether n matches sel.
func Matches(n *html.Node, sel string) bool {
	return n != nil && MustCompile(sel).Match(n)
}

// Closest returns n or its nearest ancestor matching sel.
func Closest(n *html.Node, sel string) *html.Node {
	s := MustCompile(sel)
	for p := n; p != nil; p = p.Parent {
		if s.Match(p) {
			return p
		}
	}
	return nil
}
