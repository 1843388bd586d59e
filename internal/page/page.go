// Package page holds a parsed document together with the per-request window
// state the loader consults: URL, viewport width and session.
//
// All DOM mutation goes through Do, which serializes access between the
// loader and deferred work fired by the page timer.
package page

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
	"git.home.luguber.info/inful/pageboot/internal/schedule"
)

const defaultURL = "http://localhost/"

// Options carries the window state of a page.
type Options struct {
	ViewportWidth int
	SessionID     string
	// Timer runs deferred work. Without one, deferred work never fires.
	Timer schedule.Timer
}

// Page is a parsed document plus its request state.
type Page struct {
	ID            string
	URL           *url.URL
	ViewportWidth int
	SessionID     string
	Started       time.Time

	mu           sync.Mutex
	doc          *html.Node
	timer        schedule.Timer
	pending      sync.WaitGroup
	scrollTarget string
}

// Parse reads an HTML document. An empty pageURL defaults to localhost.
func Parse(r io.Reader, pageURL string, opts Options) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse page").Build()
	}
	return New(doc, pageURL, opts)
}

// New wraps an already parsed document.
func New(doc *html.Node, pageURL string, opts Options) (*Page, error) {
	if pageURL == "" {
		pageURL = defaultURL
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid page URL").
			WithContext("url", pageURL).
			Build()
	}
	return &Page{
		ID:            uuid.NewString(),
		URL:           u,
		ViewportWidth: opts.ViewportWidth,
		SessionID:     opts.SessionID,
		Started:       time.Now(),
		doc:           doc,
		timer:         opts.Timer,
	}, nil
}

// Do runs fn with exclusive access to the document.
func (p *Page) Do(fn func(doc *html.Node)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.doc)
}

// Defer runs fn with exclusive access to the document once d has elapsed.
// It may be called from inside Do.
func (p *Page) Defer(d time.Duration, fn func(doc *html.Node)) error {
	return p.After(d, func() { p.Do(fn) })
}

// After runs fn once d has elapsed without taking the document lock; fn
// must use Do for any DOM access. Settle waits for it like for Defer.
func (p *Page) After(d time.Duration, fn func()) error {
	if p.timer == nil {
		return errors.InternalError("page has no timer").Build()
	}
	p.pending.Add(1)
	err := p.timer.AfterFunc(d, func() {
		defer p.pending.Done()
		fn()
	})
	if err != nil {
		p.pending.Done()
		return err
	}
	return nil
}

// Settle waits until all deferred work has run or ctx is done.
func (p *Page) Settle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		slog.DebugContext(ctx, "Page settle interrupted", logfields.PageID(p.ID), logfields.Error(ctx.Err()))
		return ctx.Err()
	}
}

// Render writes the document as HTML.
func (p *Page) Render(w io.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return html.Render(w, p.doc)
}

// String renders the document, returning an empty string on failure.
func (p *Page) String() string {
	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Hostname returns the page host without port.
func (p *Page) Hostname() string { return p.URL.Hostname() }

// Origin returns scheme://host[:port].
func (p *Page) Origin() string { return p.URL.Scheme + "://" + p.URL.Host }

// Fragment returns the URL fragment without the leading '#'.
func (p *Page) Fragment() string { return p.URL.Fragment }

// IsLocal reports whether the page is served from localhost.
func (p *Page) IsLocal() bool { return strings.Contains(p.Hostname(), "localhost") }

// QueryParam returns a query parameter of the page URL.
func (p *Page) QueryParam(name string) string { return p.URL.Query().Get(name) }

// SetScrollTarget records the id of the element the client should scroll to.
func (p *Page) SetScrollTarget(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrollTarget = id
}

// ScrollTarget returns the recorded scroll target, if any.
func (p *Page) ScrollTarget() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrollTarget
}
