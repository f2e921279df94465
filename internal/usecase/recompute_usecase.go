package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skill-match/internal/domain"
	"skill-match/internal/domain/candidate"
	"skill-match/internal/domain/job"
	"skill-match/internal/domain/recommendation"
	"skill-match/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BatchKind string

const (
	BatchFull      BatchKind = "full"
	BatchCandidate BatchKind = "candidate"
	BatchJob       BatchKind = "job"
	BatchTest      BatchKind = "test"
)

type BatchRequest struct {
	Kind        BatchKind
	CandidateID uuid.UUID
	JobID       uuid.UUID
	// SkillID narrows a test batch to jobs that mention the tested skill.
	SkillID uuid.UUID
	// Run is a run row created up front, so callers can hand out its id before the work starts.
	Run *repository.RecomputeRun
}

type BatchReport struct {
	RunID     uuid.UUID `json:"run_id"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Audited   int       `json:"audited"`
	Stale     int       `json:"stale"`
	Cancelled bool      `json:"cancelled"`
}

func (r BatchRequest) subject() *uuid.UUID {
	switch r.Kind {
	case BatchCandidate, BatchTest:
		id := r.CandidateID
		return &id
	case BatchJob:
		id := r.JobID
		return &id
	default:
		return nil
	}
}

func (r BatchRequest) validate() error {
	switch r.Kind {
	case BatchFull:
		return nil
	case BatchCandidate:
		if r.CandidateID == uuid.Nil {
			return fmt.Errorf("%w: candidate batch without candidate id", domain.ErrValidation)
		}
	case BatchJob:
		if r.JobID == uuid.Nil {
			return fmt.Errorf("%w: job batch without job id", domain.ErrValidation)
		}
	case BatchTest:
		if r.CandidateID == uuid.Nil || r.SkillID == uuid.Nil {
			return fmt.Errorf("%w: test batch needs candidate and skill ids", domain.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown batch kind %q", domain.ErrValidation, r.Kind)
	}
	return nil
}

// StartRun records a pending batch so its id can be returned before the batch executes.
func (u *RecommendationUsecase) StartRun(ctx context.Context, req BatchRequest) (repository.RecomputeRun, error) {
	if err := req.validate(); err != nil {
		return repository.RecomputeRun{}, err
	}
	if u.runs == nil {
		return repository.RecomputeRun{ID: uuid.New(), Kind: string(req.Kind), SubjectID: req.subject(), Status: repository.RunRunning, StartedAt: u.now().UTC()}, nil
	}
	return u.runs.Start(ctx, string(req.Kind), req.subject())
}

// FailRun closes a run that never got to execute.
func (u *RecommendationUsecase) FailRun(ctx context.Context, run repository.RecomputeRun, cause error) error {
	if u.runs == nil {
		return nil
	}
	run.Status = repository.RunFailed
	if cause != nil {
		run.Error = cause.Error()
	}
	return u.runs.Finish(ctx, run)
}

func (u *RecommendationUsecase) Run(ctx context.Context, id uuid.UUID) (repository.RecomputeRun, error) {
	if u.runs == nil {
		return repository.RecomputeRun{}, fmt.Errorf("%w: recompute run %s", domain.ErrDataNotFound, id)
	}
	return u.runs.Get(ctx, id)
}

// Recompute rescores and persists every pair the request covers. Pairs are processed one at a
// time so cancellation stops between pairs; a failing pair is counted and skipped.
func (u *RecommendationUsecase) Recompute(ctx context.Context, req BatchRequest) (BatchReport, error) {
	if err := req.validate(); err != nil {
		return BatchReport{}, err
	}
	run := req.Run
	if run == nil {
		r, err := u.StartRun(ctx, req)
		if err != nil {
			return BatchReport{}, err
		}
		run = &r
	}

	start := u.now()
	report := BatchReport{RunID: run.ID}
	userID, err := u.recompute(ctx, req, &report)

	run.Total, run.Succeeded, run.Failed = report.Total, report.Succeeded, report.Failed
	run.Audited, run.Stale, run.Cancelled = report.Audited, report.Stale, report.Cancelled
	switch {
	case err != nil:
		run.Status = repository.RunFailed
		run.Error = err.Error()
	case report.Cancelled:
		run.Status = repository.RunCancelled
	default:
		run.Status = repository.RunSucceeded
	}
	if u.runs != nil {
		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if ferr := u.runs.Finish(finishCtx, *run); ferr != nil {
			u.log.Warn("recompute run not recorded", zap.String("run_id", run.ID.String()), zap.Error(ferr))
		}
		cancel()
	}

	// Closed jobs and unmatched test skills score nothing but still change what callers see.
	if err == nil || report.Succeeded > 0 {
		if userID != uuid.Nil {
			u.invalidator.InvalidateUser(userID)
		} else {
			u.invalidator.InvalidateAll()
		}
	}

	fields := []zap.Field{
		zap.String("pipeline", "recompute"),
		zap.String("kind", string(req.Kind)),
		zap.String("run_id", run.ID.String()),
		zap.String("status", string(run.Status)),
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("audited", report.Audited),
		zap.Int("stale", report.Stale),
		zap.Duration("duration", u.now().Sub(start)),
	}
	if err != nil {
		u.log.Error("recompute failed", append(fields, zap.Error(err))...)
		return report, err
	}
	u.log.Info("recompute finished", fields...)
	return report, nil
}

// recompute returns the user id whose caches are affected, or uuid.Nil for all users.
func (u *RecommendationUsecase) recompute(ctx context.Context, req BatchRequest, report *BatchReport) (uuid.UUID, error) {
	now := u.now().UTC()
	snap, err := u.state.Current(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	tests, err := u.tests.ListTests(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	reason := "recompute:" + string(req.Kind)

	switch req.Kind {
	case BatchCandidate, BatchTest:
		c, err := u.candidates.GetByID(ctx, req.CandidateID)
		if err != nil {
			return uuid.Nil, err
		}
		var jobs []job.Job
		if req.Kind == BatchTest {
			jobs, err = u.jobs.ListEligibleBySkill(ctx, req.SkillID, now)
		} else {
			jobs, err = u.jobs.ListEligible(ctx, now)
		}
		if err != nil {
			return uuid.Nil, err
		}
		results, err := u.tests.ListResults(ctx, []uuid.UUID{c.ID})
		if err != nil {
			return uuid.Nil, err
		}
		dismissed, err := u.dismissals.DismissedJobs(ctx, c.ID)
		if err != nil {
			return uuid.Nil, err
		}
		ci := u.prepareCandidate(ctx, snap, c, results[c.ID])
		for _, j := range jobs {
			if _, ok := dismissed[j.ID]; ok {
				continue
			}
			if !u.recomputePair(ctx, snap, ci, tests, j, now, reason, report) {
				break
			}
		}
		return c.UserID, nil

	case BatchJob:
		j, err := u.jobs.GetByID(ctx, req.JobID)
		if err != nil {
			return uuid.Nil, err
		}
		if !j.Eligible(now) {
			u.log.Info("job not open, nothing to recompute", zap.String("job_id", j.ID.String()))
			return uuid.Nil, nil
		}
		cands, err := u.candidates.ListAll(ctx)
		if err != nil {
			return uuid.Nil, err
		}
		dismissed, err := u.dismissals.DismissedCandidates(ctx, j.ID)
		if err != nil {
			return uuid.Nil, err
		}
		results, err := u.tests.ListResults(ctx, candidateIDs(cands))
		if err != nil {
			return uuid.Nil, err
		}
		for _, c := range cands {
			if _, ok := dismissed[c.ID]; ok {
				continue
			}
			ci := u.prepareCandidate(ctx, snap, c, results[c.ID])
			if !u.recomputePair(ctx, snap, ci, tests, j, now, reason, report) {
				break
			}
		}
		return uuid.Nil, nil

	default:
		cands, err := u.candidates.ListAll(ctx)
		if err != nil {
			return uuid.Nil, err
		}
		jobs, err := u.jobs.ListEligible(ctx, now)
		if err != nil {
			return uuid.Nil, err
		}
		results, err := u.tests.ListResults(ctx, candidateIDs(cands))
		if err != nil {
			return uuid.Nil, err
		}
	candidates:
		for _, c := range cands {
			dismissed, err := u.dismissals.DismissedJobs(ctx, c.ID)
			if err != nil {
				return uuid.Nil, err
			}
			ci := u.prepareCandidate(ctx, snap, c, results[c.ID])
			for _, j := range jobs {
				if _, ok := dismissed[j.ID]; ok {
					continue
				}
				if !u.recomputePair(ctx, snap, ci, tests, j, now, reason, report) {
					break candidates
				}
			}
		}
		return uuid.Nil, nil
	}
}

// recomputePair reports false when the batch has been cancelled.
func (u *RecommendationUsecase) recomputePair(
	ctx context.Context,
	snap *ActiveSnapshot,
	ci candidateInputs,
	tests []candidate.TechnicalTest,
	j job.Job,
	now time.Time,
	reason string,
	report *BatchReport,
) bool {
	if ctx.Err() != nil {
		report.Cancelled = true
		return false
	}
	report.Total++

	rec := u.score(snap, ci, tests, j, now)
	outcome, err := u.save(ctx, rec, reason)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			report.Total--
			report.Cancelled = true
			return false
		}
		report.Failed++
		u.log.Warn("pair recompute failed",
			zap.String("candidate_id", ci.candidate.ID.String()),
			zap.String("job_id", j.ID.String()),
			zap.Error(err),
		)
		return true
	}

	switch outcome {
	case recommendation.OutcomeStale:
		report.Stale++
	case recommendation.OutcomeAudited:
		report.Audited++
		report.Succeeded++
	default:
		report.Succeeded++
	}
	return true
}

func candidateIDs(cands []candidate.Candidate) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(cands))
	for _, c := range cands {
		ids = append(ids, c.ID)
	}
	return ids
}
