// Package hero promotes the first section of a page into a hero block when it
// opens with a heading followed by a picture.
//
// A section qualifies when it does not start with an already classed block
// (other than hero), holds both an <h1> and a <picture>, and the picture comes
// after the heading in document order. The heading, an optional sub-heading
// and an optional call-to-action link are grouped into div.hero-headings next
// to the picture inside a new section prepended to main. A first link pointing
// at an MP4 rendition becomes an inline video that replaces the picture after
// a delay.
package hero

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/aem"
	"git.home.luguber.info/inful/pageboot/internal/dom"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
	"git.home.luguber.info/inful/pageboot/internal/outcome"
	"git.home.luguber.info/inful/pageboot/internal/video"
)

// StepName is the step name hero results are reported under.
const StepName = "hero"

// DefaultVideoDelay is how long the picture stays before the video replaces it.
const DefaultVideoDelay = 3 * time.Second

// Skip reasons.
const (
	ReasonNoSection     = "no section"
	ReasonEmptySection  = "section has no elements"
	ReasonExistingBlock = "first element is a non-hero block"
	ReasonNoHeading     = "no heading"
	ReasonNoPicture     = "no picture"
	ReasonPictureFirst  = "picture does not follow heading"
)

// DeferFunc runs fn once d has elapsed.
type DeferFunc func(d time.Duration, fn func()) error

// Match holds the elements found in a hero candidate section. It is
// recomputed on every pass and never stored.
type Match struct {
	Section      *html.Node
	FirstElement *html.Node
	Heading      *html.Node
	Picture      *html.Node
	Link         *html.Node
	CTA          bool
	Video        *html.Node
}

// Find locates the hero candidate in main. It returns a skip reason when the
// first section cannot be a hero.
func Find(main *html.Node) (*Match, string) {
	section := dom.QuerySelector(main, "div")
	if section == nil {
		return nil, ReasonNoSection
	}
	first := dom.FirstElementChild(section)
	if first == nil {
		return nil, ReasonEmptySection
	}
	if dom.IsElement(first, "div") && len(dom.Classes(first)) > 0 && !dom.HasClass(first, "hero") {
		return nil, ReasonExistingBlock
	}
	return &Match{
		Section:      section,
		FirstElement: first,
		Heading:      dom.QuerySelector(section, "h1"),
		Picture:      dom.QuerySelector(section, "picture"),
		Link:         dom.QuerySelector(section, "a"),
	}, ""
}

// Promotable reports whether the match can become a hero, and why not.
func (m *Match) Promotable() (bool, string) {
	switch {
	case m.Heading == nil:
		return false, ReasonNoHeading
	case m.Picture == nil:
		return false, ReasonNoPicture
	case !dom.Precedes(m.Heading, m.Picture):
		return false, ReasonPictureFirst
	}
	return true, ""
}

// Builder runs the hero auto-block.
type Builder struct {
	// Defer schedules the video swap. Without it the swap never happens.
	Defer      DeferFunc
	VideoDelay time.Duration
	Logger     *slog.Logger
}

// NewBuilder returns a Builder using deferFn and the default video delay.
func NewBuilder(deferFn DeferFunc) *Builder {
	return &Builder{Defer: deferFn, VideoDelay: DefaultVideoDelay}
}

func (b *Builder) Name() string { return StepName }

// Build restructures main in place. DOM-shape mismatches are reported as
// skipped results, never as failures.
func (b *Builder) Build(ctx context.Context, main *html.Node) outcome.Result {
	m, reason := Find(main)
	if m == nil {
		return outcome.Skipped(StepName, reason)
	}

	if m.Link != nil && video.IsLowResolutionVideoURL(dom.Attr(m.Link, "href")) {
		m.Video = newVideo(dom.Attr(m.Link, "href"))
		dom.Remove(m.Link.Parent)
		m.Link = dom.QuerySelector(m.Section, "a")
		b.deferVideoSwap(ctx, m.Picture, m.Video)
	}

	m.CTA = m.Link != nil && IsCTALink(m.Link)
	if m.CTA {
		dom.AddClass(m.Link, "cta")
	}

	if ok, reason := m.Promotable(); !ok {
		return outcome.Skipped(StepName, reason)
	}

	headings := dom.Element("div", "class", "hero-headings")
	if sub := subHeading(m.Heading); sub != nil {
		h4 := dom.Element("h4")
		dom.MoveChildren(h4, sub)
		dom.Remove(sub)
		dom.Append(headings, h4)
	}
	dom.Append(headings, m.Heading)
	if m.CTA {
		dom.Append(headings, ctaContainer(m.Link))
	}

	block := aem.BuildBlock("hero", m.Picture, headings)
	dom.AddClass(block, dom.Classes(m.FirstElement)...)
	if m.Video != nil {
		dom.AddClass(block, "hero-with-video")
	}
	section := dom.Element("div")
	dom.Append(section, block)

	pruneSection(m.Section)
	dom.Prepend(main, section)
	return outcome.Applied(StepName)
}

func (b *Builder) deferVideoSwap(ctx context.Context, picture, vid *html.Node) {
	if picture == nil || b.Defer == nil {
		return
	}
	delay := b.VideoDelay
	if delay <= 0 {
		delay = DefaultVideoDelay
	}
	err := b.Defer(delay, func() {
		if picture.Parent == nil {
			return
		}
		dom.ReplaceWith(picture, vid)
		dom.SetAttr(vid, "autoplay", "")
	})
	if err != nil {
		logger := b.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.WarnContext(ctx, "Hero video swap not scheduled", logfields.Block(StepName), logfields.Error(err))
	}
}

func newVideo(src string) *html.Node {
	v := dom.Element("video", "muted", "", "loop", "", "class", "hero-video")
	dom.Append(v, dom.Element("source", "src", src, "type", "video/mp4"))
	return v
}

// IsCTALink reports whether a link is a call to action: its container must
// carry button-container and sit next to an <h1>, directly before or after
// it or one element further back.
func IsCTALink(link *html.Node) bool {
	container := ctaContainer(link)
	if container == nil || !dom.HasClass(container, "button-container") {
		return false
	}
	prev := dom.PreviousElementSibling(container)
	candidates := []*html.Node{prev, dom.NextElementSibling(container)}
	if prev != nil {
		candidates = append(candidates, dom.PreviousElementSibling(prev))
	}
	for _, c := range candidates {
		if dom.IsElement(c, "h1") {
			return true
		}
	}
	return false
}

// ctaContainer is the link's parent, or its grandparent when the link is
// wrapped in <strong> or <em>.
func ctaContainer(link *html.Node) *html.Node {
	parent := link.Parent
	if parent == nil {
		return nil
	}
	if dom.IsElement(parent, "strong") || dom.IsElement(parent, "em") {
		return parent.Parent
	}
	return parent
}

// subHeading returns the element after the heading when it is an h2-h4 or a
// paragraph whose only element children are line breaks.
func subHeading(h1 *html.Node) *html.Node {
	next := dom.NextElementSibling(h1)
	if next == nil {
		return nil
	}
	if dom.Matches(next, "h2, h3, h4") {
		return next
	}
	if !dom.IsElement(next, "p") {
		return nil
	}
	for _, c := range dom.ElementChildren(next) {
		if !dom.IsElement(c, "br") {
			return nil
		}
	}
	return next
}

// pruneSection removes what the promotion left behind: the whole section when
// only one emptied wrapper remains, or just the emptied first wrapper.
func pruneSection(section *html.Node) {
	children := dom.ElementChildren(section)
	if len(children) == 0 {
		dom.Remove(section)
		return
	}
	if len(dom.ElementChildren(children[0])) > 0 {
		return
	}
	if len(children) == 1 {
		dom.Remove(section)
		return
	}
	dom.Remove(children[0])
}
