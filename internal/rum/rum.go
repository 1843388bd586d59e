// Package rum samples real user monitoring checkpoints.
//
// A page is selected for sampling with probability 1/weight. The weight
// defaults to 100 and drops to 1 (always selected) when the page URL carries
// rum=on. Selection is derived from the page id, so every checkpoint of a
// page shares the same decision.
package rum

import (
	"context"
	"hash/fnv"
	"log/slog"
	"time"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/dom"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
	"git.home.luguber.info/inful/pageboot/internal/metrics"
	"git.home.luguber.info/inful/pageboot/internal/page"
)

// DefaultWeight is the sampling weight without rum=on.
const DefaultWeight = 100

// Checkpoint names emitted by the loader.
const (
	CheckpointLazy    = "lazy"
	CheckpointCWV     = "cwv"
	CheckpointObserve = "observe"
)

// Event is one sampled checkpoint.
type Event struct {
	ID         string    `json:"id"`
	Checkpoint string    `json:"checkpoint"`
	Source     string    `json:"source,omitempty"`
	Target     string    `json:"target,omitempty"`
	Weight     int       `json:"weight"`
	Referer    string    `json:"referer"`
	T          int64     `json:"t"`
	Time       time.Time `json:"time"`
}

// Data carries optional checkpoint details.
type Data struct {
	Source string
	Target string
}

// Sink delivers sampled events.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Sampler decides which pages are sampled and emits their events.
type Sampler struct {
	weight   int
	sink     Sink
	recorder metrics.Recorder
	now      func() time.Time
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithRecorder counts emitted events on r.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Sampler) { s.recorder = r }
}

// NewSampler returns a sampler with the given default weight (100 when < 1).
func NewSampler(weight int, sink Sink, opts ...Option) *Sampler {
	if weight < 1 {
		weight = DefaultWeight
	}
	s := &Sampler{weight: weight, sink: sink, recorder: metrics.NoopRecorder{}, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Weight returns the weight applied to p.
func (s *Sampler) Weight(p *page.Page) int {
	if p.QueryParam("rum") == "on" {
		return 1
	}
	return s.weight
}

// Selected reports whether p is sampled.
func (s *Sampler) Selected(p *page.Page) bool {
	return fraction(p.ID)*float64(s.Weight(p)) < 1
}

// fraction maps an id onto [0, 1).
func fraction(id string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return float64(h.Sum32()) / (1 << 32)
}

// Sample emits checkpoint for p when p is selected. Sink failures are logged.
func (s *Sampler) Sample(ctx context.Context, p *page.Page, checkpoint string, data Data) {
	if !s.Selected(p) {
		return
	}
	now := s.now()
	referer := *p.URL
	referer.RawQuery = ""
	referer.Fragment = ""
	e := Event{
		ID:         p.ID,
		Checkpoint: checkpoint,
		Source:     data.Source,
		Target:     data.Target,
		Weight:     s.Weight(p),
		Referer:    referer.String(),
		T:          now.Sub(p.Started).Milliseconds(),
		Time:       now,
	}
	if err := s.sink.Send(ctx, e); err != nil {
		slog.WarnContext(ctx, "RUM event not delivered", logfields.Checkpoint(checkpoint), logfields.PageID(p.ID), logfields.Error(err))
		return
	}
	s.recorder.IncRUMEvent(checkpoint)
}

// ObservedData describes el for an observe checkpoint: blocks report their
// block name as source, images their src. Callers hold the page lock.
func ObservedData(el *html.Node) Data {
	switch {
	case dom.HasAttr(el, "data-block-name"):
		return Data{Source: dom.Attr(el, "data-block-name"), Target: dom.Attr(el, "data-block-status")}
	case dom.IsElement(el, "img"):
		return Data{Source: dom.Attr(el, "src"), Target: dom.Attr(el, "alt")}
	default:
		return Data{Source: el.Data}
	}
}

// Observe emits an observe checkpoint per entry.
func (s *Sampler) Observe(ctx context.Context, p *page.Page, observed []Data) {
	if !s.Selected(p) {
		return
	}
	for _, data := range observed {
		s.Sample(ctx, p, CheckpointObserve, data)
	}
}
