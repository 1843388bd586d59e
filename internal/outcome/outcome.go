// Package outcome reports what each bootstrap step did: applied, skipped on
// purpose, or failed unexpectedly. Steps never swallow errors silently; they
// return a Result and the caller hands it to an Observer.
package outcome

import (
	"context"
	"fmt"
	"time"
)

// Status classifies a step result.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result describes one step of one phase.
type Result struct {
	Phase    string
	Step     string
	Status   Status
	Reason   string
	Err      error
	Duration time.Duration
}

// Applied returns a successful result.
func Applied(step string) Result {
	return Result{Step: step, Status: StatusApplied}
}

// Skipped returns a result for a step that intentionally did nothing.
func Skipped(step, reason string) Result {
	return Result{Step: step, Status: StatusSkipped, Reason: reason}
}

// Skippedf is Skipped with a formatted reason.
func Skippedf(step, format string, args ...any) Result {
	return Skipped(step, fmt.Sprintf(format, args...))
}

// Failed returns a result for a step that hit an unexpected error.
func Failed(step string, err error) Result {
	return Result{Step: step, Status: StatusFailed, Err: err}
}

// FromError returns Applied when err is nil and Failed otherwise.
func FromError(step string, err error) Result {
	if err != nil {
		return Failed(step, err)
	}
	return Applied(step)
}

// InPhase returns a copy of r attributed to phase.
func (r Result) InPhase(phase string) Result {
	r.Phase = phase
	return r
}

// Took returns a copy of r with the given duration.
func (r Result) Took(d time.Duration) Result {
	r.Duration = d
	return r
}

func (r Result) OK() bool { return r.Status != StatusFailed }

func (r Result) String() string {
	s := r.Phase + "/" + r.Step + ": " + string(r.Status)
	switch {
	case r.Err != nil:
		s += " (" + r.Err.Error() + ")"
	case r.Reason != "":
		s += " (" + r.Reason + ")"
	}
	return s
}

// Observer receives step results as they happen.
type Observer interface {
	Observe(ctx context.Context, r Result)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, r Result)

func (f ObserverFunc) Observe(ctx context.Context, r Result) { f(ctx, r) }

// Discard ignores every result.
var Discard Observer = ObserverFunc(func(context.Context, Result) {})

// Multi fans results out to every non-nil observer.
func Multi(observers ...Observer) Observer {
	var list []Observer
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return ObserverFunc(func(ctx context.Context, r Result) {
		for _, o := range list {
			o.Observe(ctx, r)
		}
	})
}

// Collector records results in order. It is not safe for concurrent use.
type Collector struct {
	Results []Result
}

func (c *Collector) Observe(_ context.Context, r Result) {
	c.Results = append(c.Results, r)
}

// Find returns the first recorded result for phase and step.
func (c *Collector) Find(phase, step string) (Result, bool) {
	for _, r := range c.Results {
		if r.Phase == phase && r.Step == step {
			return r, true
		}
	}
	return Result{}, false
}
