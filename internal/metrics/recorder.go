package metrics

import (
	"context"
	"time"

	"git.home.luguber.info/inful/pageboot/internal/outcome"
)

// Recorder defines the observability hooks of the page bootstrap and the
// edge proxy.
type Recorder interface {
	ObservePhaseDuration(phase string, d time.Duration)
	IncStepResult(phase, step string, status outcome.Status)
	ObserveRequestDuration(route string, code int, d time.Duration)
	ObserveContentFetch(d time.Duration, success bool)
	IncRUMEvent(checkpoint string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePhaseDuration(string, time.Duration)        {}
func (NoopRecorder) IncStepResult(string, string, outcome.Status)      {}
func (NoopRecorder) ObserveRequestDuration(string, int, time.Duration) {}
func (NoopRecorder) ObserveContentFetch(time.Duration, bool)           {}
func (NoopRecorder) IncRUMEvent(string)                                {}

// StepObserver counts step results on a Recorder.
type StepObserver struct {
	Recorder Recorder
}

func (o StepObserver) Observe(_ context.Context, r outcome.Result) {
	if o.Recorder == nil {
		return
	}
	o.Recorder.IncStepResult(r.Phase, r.Step, r.Status)
}
