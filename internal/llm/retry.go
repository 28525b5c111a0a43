package llm

import (
	"context"
	"time"

	"github.com/coder/quartz"
)

// RetryPolicy controls the transport-level retry loop inside the client.
// This is distinct from the orchestrator's semantic retry-with-corrective-
// prompt loop; the two layers must not be conflated.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy mirrors the upstream API client defaults: three
// attempts with doubling backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       time.Second,
		Multiplier:  2,
	}
}

// delayFor returns the sleep before the given 1-based attempt. The first
// attempt has no delay.
func (p RetryPolicy) delayFor(attempt int) time.Duration {
	if attempt <= 1 || p.Delay <= 0 {
		return 0
	}
	d := p.Delay
	for i := 2; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
	}
	return d
}

// sleep waits for d on the supplied clock, returning early if ctx is
// cancelled.
func sleep(ctx context.Context, clock quartz.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	fired := make(chan struct{})
	timer := clock.AfterFunc(d, func() {
		close(fired)
	})
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-fired:
		return nil
	}
}
