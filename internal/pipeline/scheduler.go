package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"skill-match/internal/config"
	"skill-match/internal/domain"
	"skill-match/internal/pkg/logger"
	"skill-match/internal/usecase"

	"go.uber.org/zap"
)

type Recomputer interface {
	Recompute(ctx context.Context, req usecase.BatchRequest) (usecase.BatchReport, error)
}

type Retrainer interface {
	Retrain(ctx context.Context, force bool) (usecase.TrainResult, error)
}

type Refitter interface {
	Refit(ctx context.Context, force bool) (usecase.RefitResult, error)
}

type Invalidator interface {
	InvalidateAll()
}

// Listener delivers notification payloads until ctx is done. *postgres.Pool implements it.
type Listener interface {
	Listen(ctx context.Context, channel string, fn func(payload string)) error
}

type SchedulerDeps struct {
	Recommendations Recomputer
	Clusters        Retrainer
	Vocabulary      Refitter
	Invalidator     Invalidator
	Listener        Listener
}

type Scheduler struct {
	deps  SchedulerDeps
	cfg   config.SchedulerConfig
	retry RetryPolicy
	pool  *WorkerPool
	log   *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewScheduler(deps SchedulerDeps, cfg config.SchedulerConfig, log *zap.Logger) *Scheduler {
	return &Scheduler{
		deps: deps,
		cfg:  cfg,
		retry: RetryPolicy{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
		},
		pool: NewWorkerPool(cfg.Workers, cfg.QueueSize),
		log:  logger.OrNop(log).With(zap.String("component", "scheduler")),
	}
}

// Start launches the workers, the periodic tickers and the notification listener. They run
// until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	results := s.pool.Run(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for r := range results {
			if r.Err != nil {
				s.log.Error("task failed", zap.String("task", r.Key), zap.Duration("duration", r.Duration), zap.Error(r.Err))
				continue
			}
			s.log.Debug("task done", zap.String("task", r.Key), zap.Duration("duration", r.Duration))
		}
	}()

	s.every(ctx, s.cfg.FullRecomputeInterval, FullRecompute)
	s.every(ctx, s.cfg.RetrainCheckInterval, func() Event { return RetrainClusters(false) })

	if s.cfg.ListenNotifications && s.deps.Listener != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.listen(ctx)
		}()
	}
	s.log.Info("scheduler started",
		zap.Int("workers", s.cfg.Workers),
		zap.Duration("full_recompute_interval", s.cfg.FullRecomputeInterval),
		zap.Duration("retrain_check_interval", s.cfg.RetrainCheckInterval),
		zap.Bool("listen", s.cfg.ListenNotifications && s.deps.Listener != nil),
	)
}

// Stop cancels running batches, which record themselves as cancelled, drops queued events
// and waits for every goroutine.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.pool.Close()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// Enqueue reports whether e was queued. Duplicates of a pending event are coalesced.
func (s *Scheduler) Enqueue(e Event) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, err
	}
	ok, err := s.pool.Submit(e.Key(), func(ctx context.Context) error { return s.handle(ctx, e) })
	if err != nil {
		s.log.Warn("event dropped", zap.String("event", e.Key()), zap.Error(err))
		return false, err
	}
	if !ok {
		s.log.Debug("event coalesced", zap.String("event", e.Key()))
	}
	return ok, nil
}

func (s *Scheduler) every(ctx context.Context, d time.Duration, ev func() Event) {
	if d <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_, _ = s.Enqueue(ev())
			}
		}
	}()
}

func (s *Scheduler) listen(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		err := s.deps.Listener.Listen(ctx, NotifyChannel, s.onNotification)
		if ctx.Err() != nil {
			return
		}
		wait := s.retry.delay(attempt)
		if wait <= 0 {
			wait = time.Second
		}
		s.log.Warn("notification listener stopped, reconnecting", zap.Duration("in", wait), zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (s *Scheduler) onNotification(payload string) {
	e, err := ParseEvent(payload)
	if err != nil {
		s.log.Warn("ignoring notification", zap.String("payload", payload), zap.Error(err))
		return
	}
	_, _ = s.Enqueue(e)
}

func (s *Scheduler) handle(ctx context.Context, e Event) error {
	attempts, err := s.retry.Do(ctx, func(ctx context.Context) error { return s.dispatch(ctx, e) })
	if err != nil && attempts > 1 {
		s.log.Warn("giving up after retries", zap.String("event", e.Key()), zap.Int("attempts", attempts))
	}
	return err
}

func (s *Scheduler) dispatch(ctx context.Context, e Event) error {
	switch e.Kind {
	case EventJobChanged:
		if s.deps.Vocabulary != nil {
			if _, err := s.deps.Vocabulary.Refit(ctx, false); err != nil && !errors.Is(err, domain.ErrInsufficientData) {
				return err
			}
		}
		return s.recompute(ctx, usecase.BatchRequest{Kind: usecase.BatchJob, JobID: e.JobID, Run: e.Run})
	case EventCandidateChanged:
		return s.recompute(ctx, usecase.BatchRequest{Kind: usecase.BatchCandidate, CandidateID: e.CandidateID, Run: e.Run})
	case EventTestCompleted:
		return s.recompute(ctx, usecase.BatchRequest{Kind: usecase.BatchTest, CandidateID: e.CandidateID, SkillID: e.SkillID, Run: e.Run})
	case EventFullRecompute:
		return s.recompute(ctx, usecase.BatchRequest{Kind: usecase.BatchFull, Run: e.Run})
	case EventRetrainClusters:
		if s.deps.Clusters == nil {
			return nil
		}
		_, err := s.deps.Clusters.Retrain(ctx, e.Force)
		if errors.Is(err, domain.ErrInsufficientData) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Scheduler) recompute(ctx context.Context, req usecase.BatchRequest) error {
	if s.deps.Recommendations == nil {
		return nil
	}
	_, err := s.deps.Recommendations.Recompute(ctx, req)
	if errors.Is(err, domain.ErrDataNotFound) {
		// the subject was deleted; its rows are gone with it
		s.log.Info("recompute subject no longer exists", zap.String("kind", string(req.Kind)), zap.Error(err))
		if s.deps.Invalidator != nil {
			s.deps.Invalidator.InvalidateAll()
		}
		return nil
	}
	return err
}
