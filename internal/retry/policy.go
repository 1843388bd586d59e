// Package retry holds the backoff policy used for transient origin failures.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/pageboot/internal/config"
	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/logfields"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       config.BackoffMode // fixed|linear|exponential
	Initial    time.Duration      // base delay
	Max        time.Duration      // cap for growth
	MaxRetries int                // retries after the first failure
}

// DefaultPolicy is linear, 200ms initial, 2s cap, 2 retries.
func DefaultPolicy() Policy {
	return Policy{Mode: config.BackoffLinear, Initial: 200 * time.Millisecond, Max: 2 * time.Second, MaxRetries: 2}
}

// NewPolicy builds a policy from cfg; zero or unknown values fall back to
// defaults and a negative retry count disables retries.
func NewPolicy(cfg config.RetryConfig) Policy {
	p := DefaultPolicy()
	switch {
	case cfg.MaxRetries < 0:
		p.MaxRetries = 0
	case cfg.MaxRetries > 0:
		p.MaxRetries = cfg.MaxRetries
	}
	if cfg.Initial > 0 {
		p.Initial = cfg.Initial
	}
	if cfg.Max > 0 {
		p.Max = cfg.Max
	}
	switch cfg.Backoff {
	case config.BackoffFixed, config.BackoffLinear, config.BackoffExponential:
		p.Mode = cfg.Backoff
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the backoff before retry n (1-based).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case config.BackoffFixed:
		return p.Initial
	case config.BackoffExponential:
		if retryCount > 30 {
			return p.Max
		}
		d = p.Initial * (1 << (retryCount - 1))
	default:
		d = time.Duration(retryCount) * p.Initial
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// Validate ensures the policy can be applied.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// Do runs fn until it succeeds, returns an error that cannot be retried, or
// the retries are used up. Only classified errors that allow retries are
// retried. The last error is returned.
func (p Policy) Do(ctx context.Context, name string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			wait := p.Delay(attempt)
			slog.DebugContext(ctx, "Retrying after transient failure",
				slog.String("operation", name),
				slog.Int("attempt", attempt),
				logfields.Duration(wait),
				logfields.Error(err))
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return err
			case <-t.C:
			}
		}
		err = fn(ctx)
		if err == nil || attempt >= p.MaxRetries || !retryable(err) {
			return err
		}
	}
}

func retryable(err error) bool {
	ce, ok := errors.AsClassified(err)
	return ok && ce.CanRetry()
}
