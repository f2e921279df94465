package pipeline

import (
	"context"
	"time"

	"skill-match/internal/domain"
)

type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	d := base << (attempt - 1)
	if d <= 0 || (p.MaxDelay > 0 && d > p.MaxDelay) {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, fails permanently or MaxAttempts is reached. Only errors
// marked transient are retried.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) (attempts int, err error) {
	max := p.MaxAttempts
	if max < 1 {
		max = 1
	}
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !domain.IsTransient(err) || attempt >= max {
			return attempt, err
		}
		t := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return attempt, err
		case <-t.C:
		}
	}
}
