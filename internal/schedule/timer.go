// Package schedule provides the one-shot timers used for deferred page work.
//
// Timers cannot be cancelled individually. Shutting a timer down drops
// whatever has not fired yet.
package schedule

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Timer runs fn once after d has elapsed.
type Timer interface {
	AfterFunc(d time.Duration, fn func()) error
}

// minScheduledDelay is the smallest delay handed to gocron as a start time;
// shorter delays would be in the past by the time the job is validated.
const minScheduledDelay = 10 * time.Millisecond

// GocronTimer runs deferred work as gocron one-time jobs.
type GocronTimer struct {
	scheduler gocron.Scheduler
}

// NewGocronTimer creates and starts a gocron-backed timer.
func NewGocronTimer() (*GocronTimer, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.Start()
	return &GocronTimer{scheduler: s}, nil
}

// AfterFunc schedules fn as a one-time job. The job is removed from the
// scheduler once it has run.
func (t *GocronTimer) AfterFunc(d time.Duration, fn func()) error {
	start := gocron.OneTimeJobStartImmediately()
	if d >= minScheduledDelay {
		start = gocron.OneTimeJobStartDateTime(time.Now().Add(d))
	}
	if _, err := t.scheduler.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(fn),
		gocron.WithName("deferred"),
		gocron.WithLimitedRuns(1),
	); err != nil {
		return fmt.Errorf("failed to schedule deferred job: %w", err)
	}
	return nil
}

// Pending returns the number of jobs still registered with the scheduler.
func (t *GocronTimer) Pending() int {
	return len(t.scheduler.Jobs())
}

// Shutdown stops the scheduler. Jobs that have not fired are dropped.
func (t *GocronTimer) Shutdown() error {
	return t.scheduler.Shutdown()
}
