// Package decorate runs the fixed decoration pass over a page's main
// element: buttons, icons, auto-blocks, sections, blocks.
package decorate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/outcome"
)

// Phase is the phase name decoration results are reported under.
const Phase = "decorate"

// Step names.
const (
	StepButtons  = "buttons"
	StepIcons    = "icons"
	StepSections = "sections"
	StepBlocks   = "blocks"
)

// Decorator mutates a container in place. Every method must be idempotent.
type Decorator interface {
	DecorateButtons(el *html.Node)
	DecorateIcons(el *html.Node)
	DecorateSections(main *html.Node)
	DecorateBlocks(main *html.Node)
}

// AutoBlock synthesizes a block from default content.
type AutoBlock interface {
	Name() string
	Build(ctx context.Context, main *html.Node) outcome.Result
}

// Pipeline is the decoration pass.
type Pipeline struct {
	decorator  Decorator
	autoBlocks []AutoBlock
	observer   outcome.Observer
}

// NewPipeline returns a pipeline running autoBlocks, in order, between icon
// and section decoration. A nil observer discards results.
func NewPipeline(decorator Decorator, observer outcome.Observer, autoBlocks ...AutoBlock) *Pipeline {
	if observer == nil {
		observer = outcome.Discard
	}
	return &Pipeline{decorator: decorator, autoBlocks: autoBlocks, observer: observer}
}

// DecorateMain decorates main and returns the result of every step. A failing
// auto-block is reported and decoration carries on.
func (p *Pipeline) DecorateMain(ctx context.Context, main *html.Node) []outcome.Result {
	if main == nil {
		r := outcome.Skipped("main", "no main element").InPhase(Phase)
		p.observer.Observe(ctx, r)
		return []outcome.Result{r}
	}

	results := make([]outcome.Result, 0, 4+len(p.autoBlocks))
	record := func(r outcome.Result) {
		r = r.InPhase(Phase)
		results = append(results, r)
		p.observer.Observe(ctx, r)
	}

	record(p.step(StepButtons, func() { p.decorator.DecorateButtons(main) }))
	record(p.step(StepIcons, func() { p.decorator.DecorateIcons(main) }))
	for _, ab := range p.autoBlocks {
		record(runAutoBlock(ctx, ab, main))
	}
	record(p.step(StepSections, func() { p.decorator.DecorateSections(main) }))
	record(p.step(StepBlocks, func() { p.decorator.DecorateBlocks(main) }))
	return results
}

func (p *Pipeline) step(name string, fn func()) outcome.Result {
	start := time.Now()
	fn()
	return outcome.Applied(name).Took(time.Since(start))
}

// runAutoBlock is the failure barrier around an auto-block: panics become
// failed results.
func runAutoBlock(ctx context.Context, ab AutoBlock, main *html.Node) (res outcome.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = outcome.Failed(ab.Name(), errors.DOMError("auto blocking failed").
				WithContext("block", ab.Name()).
				WithContext("panic", fmt.Sprint(r)).
				Build())
		}
		res = res.Took(time.Since(start))
	}()
	return ab.Build(ctx, main)
}
