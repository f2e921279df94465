package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"skill-match/internal/domain"
)

func noop(context.Context) error { return nil }

func TestWorkerPool_CoalescesPendingKeys(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := NewWorkerPool(1, 8)
	started := make(chan struct{})
	release := make(chan struct{})
	if ok, err := p.Submit("block", func(context.Context) error {
		close(started)
		<-release
		return nil
	}); !ok || err != nil {
		t.Fatalf("submit block: ok=%v err=%v", ok, err)
	}
	results := p.Run(ctx)
	<-started

	if ok, _ := p.Submit("a", noop); !ok {
		t.Fatalf("expected first a to queue")
	}
	if ok, err := p.Submit("a", noop); ok || err != nil {
		t.Fatalf("expected duplicate a to coalesce, ok=%v err=%v", ok, err)
	}
	if ok, _ := p.Submit("b", func(context.Context) error { return errors.New("boom") }); !ok {
		t.Fatalf("expected b to queue")
	}
	if p.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", p.Pending())
	}

	close(release)
	p.Close()

	got := map[string]error{}
	for r := range results {
		got[r.Key] = r.Err
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %v", got)
	}
	if got["b"] == nil || got["a"] != nil {
		t.Fatalf("unexpected errors %v", got)
	}
	if _, err := p.Submit("c", noop); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected closed pool, got %v", err)
	}
}

func TestWorkerPool_QueueFull(t *testing.T) {
	p := NewWorkerPool(1, 1)
	if ok, _ := p.Submit("a", noop); !ok {
		t.Fatalf("expected a to queue")
	}
	if _, err := p.Submit("b", noop); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected queue full, got %v", err)
	}
}

func TestWorkerPool_RecoversPanics(t *testing.T) {
	p := NewWorkerPool(1, 1)
	_, _ = p.Submit("panic", func(context.Context) error { panic("bad input") })
	results := p.Run(context.Background())
	p.Close()
	r := <-results
	if r.Err == nil {
		t.Fatalf("expected panic to surface as error")
	}
}

func TestRetryPolicy(t *testing.T) {
	transient := func(context.Context) error {
		return errors.Join(errors.New("employability api"), domain.ErrExternalDependencyUnavailable)
	}
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	n, err := p.Do(context.Background(), transient)
	if n != 3 || !domain.IsTransient(err) {
		t.Fatalf("expected 3 attempts with transient error, got %d %v", n, err)
	}

	n, err = p.Do(context.Background(), func(context.Context) error { return domain.ErrValidation })
	if n != 1 || !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected permanent error to stop at once, got %d %v", n, err)
	}

	calls := 0
	n, err = p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return transient(ctx)
		}
		return nil
	})
	if n != 2 || err != nil {
		t.Fatalf("expected success on second attempt, got %d %v", n, err)
	}

	capped := RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	if d := capped.delay(1); d != 100*time.Millisecond {
		t.Fatalf("first delay %s", d)
	}
	if d := capped.delay(3); d != 300*time.Millisecond {
		t.Fatalf("expected cap, got %s", d)
	}
}
