package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"skill-match/internal/config"
	"skill-match/internal/domain"
	"skill-match/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	l.calls = append(l.calls, s)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type mockRecomputer struct {
	log      *callLog
	failures int
	err      error
	seen     chan usecase.BatchRequest
}

func (m *mockRecomputer) Recompute(_ context.Context, req usecase.BatchRequest) (usecase.BatchReport, error) {
	m.log.add("recompute:" + string(req.Kind))
	m.seen <- req
	if m.failures > 0 {
		m.failures--
		return usecase.BatchReport{}, m.err
	}
	return usecase.BatchReport{Total: 1, Succeeded: 1}, nil
}

type mockRefitter struct{ log *callLog }

func (m mockRefitter) Refit(context.Context, bool) (usecase.RefitResult, error) {
	m.log.add("refit")
	return usecase.RefitResult{Skipped: true}, nil
}

type mockRetrainer struct {
	log  *callLog
	seen chan bool
}

func (m mockRetrainer) Retrain(_ context.Context, force bool) (usecase.TrainResult, error) {
	m.log.add("retrain")
	m.seen <- force
	return usecase.TrainResult{}, fmt.Errorf("%w: too few candidates", domain.ErrInsufficientData)
}

type mockListener struct{ payloads []string }

func (m mockListener) Listen(ctx context.Context, _ string, fn func(string)) error {
	for _, p := range m.payloads {
		fn(p)
	}
	<-ctx.Done()
	return nil
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Workers:             1,
		QueueSize:           16,
		RetryMaxAttempts:    3,
		RetryBaseDelay:      time.Millisecond,
		RetryMaxDelay:       5 * time.Millisecond,
		ListenNotifications: true,
	}
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for scheduler")
	}
	var zero T
	return zero
}

func TestScheduler_JobNotificationRefitsThenRecomputes(t *testing.T) {
	jobID := uuid.New()
	log := &callLog{}
	recs := &mockRecomputer{log: log, seen: make(chan usecase.BatchRequest, 4)}
	s := NewScheduler(SchedulerDeps{
		Recommendations: recs,
		Vocabulary:      mockRefitter{log: log},
		Listener: mockListener{payloads: []string{
			`{"kind":"job","job_id":"` + jobID.String() + `"}`,
			`not json`,
		}},
	}, testSchedulerConfig(), zap.NewNop())

	s.Start(context.Background())
	defer s.Stop()

	req := waitFor(t, recs.seen)
	if req.Kind != usecase.BatchJob || req.JobID != jobID {
		t.Fatalf("unexpected request %+v", req)
	}
	calls := log.snapshot()
	if len(calls) != 2 || calls[0] != "refit" || calls[1] != "recompute:job" {
		t.Fatalf("expected refit before recompute, got %v", calls)
	}
}

func TestScheduler_RetriesTransientFailures(t *testing.T) {
	log := &callLog{}
	recs := &mockRecomputer{
		log:      log,
		failures: 1,
		err:      fmt.Errorf("load jobs: %w", domain.ErrExternalDependencyUnavailable),
		seen:     make(chan usecase.BatchRequest, 4),
	}
	cfg := testSchedulerConfig()
	cfg.ListenNotifications = false
	s := NewScheduler(SchedulerDeps{Recommendations: recs}, cfg, zap.NewNop())
	s.Start(context.Background())
	defer s.Stop()

	candID := uuid.New()
	if ok, err := s.Enqueue(CandidateChanged(candID)); !ok || err != nil {
		t.Fatalf("enqueue: ok=%v err=%v", ok, err)
	}
	first := waitFor(t, recs.seen)
	second := waitFor(t, recs.seen)
	if first.CandidateID != candID || second.CandidateID != candID {
		t.Fatalf("expected both attempts for the same candidate")
	}
}

func TestScheduler_PermanentFailureIsNotRetried(t *testing.T) {
	log := &callLog{}
	recs := &mockRecomputer{log: log, failures: 5, err: errors.New("syntax error"), seen: make(chan usecase.BatchRequest, 8)}
	cfg := testSchedulerConfig()
	cfg.ListenNotifications = false
	s := NewScheduler(SchedulerDeps{Recommendations: recs}, cfg, zap.NewNop())
	s.Start(context.Background())

	_, _ = s.Enqueue(FullRecompute())
	waitFor(t, recs.seen)
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	if n := len(log.snapshot()); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestScheduler_RetrainToleratesInsufficientData(t *testing.T) {
	log := &callLog{}
	retrain := mockRetrainer{log: log, seen: make(chan bool, 1)}
	cfg := testSchedulerConfig()
	cfg.ListenNotifications = false
	s := NewScheduler(SchedulerDeps{Clusters: retrain}, cfg, zap.NewNop())
	s.Start(context.Background())
	defer s.Stop()

	_, _ = s.Enqueue(RetrainClusters(true))
	if force := waitFor(t, retrain.seen); !force {
		t.Fatalf("expected forced retrain")
	}
}

func TestScheduler_RejectsInvalidEvents(t *testing.T) {
	s := NewScheduler(SchedulerDeps{}, testSchedulerConfig(), zap.NewNop())
	if _, err := s.Enqueue(Event{Kind: EventJobChanged}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
