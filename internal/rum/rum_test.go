package rum

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pageboot/internal/dom"
	"git.home.luguber.info/inful/pageboot/internal/page"
)

type collectingSink struct {
	events []Event
	err    error
}

func (c *collectingSink) Send(_ context.Context, e Event) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, e)
	return nil
}

func newPage(t *testing.T, url string) *page.Page {
	t.Helper()
	p, err := page.New(dom.Element("html"), url, page.Options{})
	require.NoError(t, err)
	return p
}

func TestWeight(t *testing.T) {
	s := NewSampler(0, &collectingSink{})
	assert.Equal(t, DefaultWeight, s.Weight(newPage(t, "https://example.com/")))
	assert.Equal(t, 1, s.Weight(newPage(t, "https://example.com/?rum=on")))
}

func TestSelected_ForcedWithRumOn(t *testing.T) {
	s := NewSampler(100, &collectingSink{})
	for range 50 {
		assert.True(t, s.Selected(newPage(t, "https://example.com/?rum=on")))
	}
}

func TestSelected_RoughlyOneInWeight(t *testing.T) {
	s := NewSampler(100, &collectingSink{})
	selected := 0
	for range 20000 {
		if s.Selected(newPage(t, "https://example.com/")) {
			selected++
		}
	}
	assert.InDelta(t, 200, selected, 100)
}

func TestSelected_StablePerPage(t *testing.T) {
	s := NewSampler(2, &collectingSink{})
	p := newPage(t, "https://example.com/")
	first := s.Selected(p)
	for range 10 {
		assert.Equal(t, first, s.Selected(p))
	}
}

func TestSample(t *testing.T) {
	sink := &collectingSink{}
	s := NewSampler(100, sink)
	s.now = func() time.Time { return time.Unix(100, 0) }
	p := newPage(t, "https://example.com/en/page?rum=on&utm=x#top")
	p.Started = time.Unix(99, 500_000_000)

	s.Sample(context.Background(), p, CheckpointLazy, Data{})

	require.Len(t, sink.events, 1)
	e := sink.events[0]
	assert.Equal(t, p.ID, e.ID)
	assert.Equal(t, CheckpointLazy, e.Checkpoint)
	assert.Equal(t, 1, e.Weight)
	assert.Equal(t, "https://example.com/en/page", e.Referer)
	assert.Equal(t, int64(500), e.T)
}

func TestSample_SinkErrorIsSwallowed(t *testing.T) {
	s := NewSampler(100, &collectingSink{err: errors.New("down")})
	s.Sample(context.Background(), newPage(t, "https://example.com/?rum=on"), CheckpointCWV, Data{})
}

func TestObserve(t *testing.T) {
	sink := &collectingSink{}
	s := NewSampler(100, sink)
	p := newPage(t, "https://example.com/?rum=on")

	block := dom.Element("div", "class", "cards block", "data-block-name", "cards", "data-block-status", "loaded")
	img := dom.Element("img", "src", "/media/a.jpg", "alt", "A")
	s.Observe(context.Background(), p, []Data{ObservedData(block), ObservedData(img)})

	require.Len(t, sink.events, 2)
	assert.Equal(t, CheckpointObserve, sink.events[0].Checkpoint)
	assert.Equal(t, "cards", sink.events[0].Source)
	assert.Equal(t, "loaded", sink.events[0].Target)
	assert.Equal(t, "/media/a.jpg", sink.events[1].Source)
	assert.Equal(t, "A", sink.events[1].Target)
}

func TestMultiSink(t *testing.T) {
	a, b := &collectingSink{}, &collectingSink{err: errors.New("down")}
	err := MultiSink{b, a}.Send(context.Background(), Event{Checkpoint: "lazy"})
	require.Error(t, err)
	assert.Len(t, a.events, 1)
}
