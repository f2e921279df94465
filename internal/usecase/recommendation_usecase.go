package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"skill-match/internal/domain"
	"skill-match/internal/domain/candidate"
	"skill-match/internal/domain/feature"
	"skill-match/internal/domain/job"
	"skill-match/internal/domain/matching"
	"skill-match/internal/domain/recommendation"
	"skill-match/internal/infrastructure/cache"
	"skill-match/internal/infrastructure/employability"
	"skill-match/internal/pkg/logger"
	"skill-match/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type RecommendationSettings struct {
	AuditThreshold  float64
	DefaultLimit    int
	MaxLimit        int
	DefaultMinScore float64
	Parallelism     int
	CacheTTL        time.Duration
}

type Params struct {
	Limit    int
	MinScore *float64
	Persist  bool
	// Reason is recorded on audit rows written by this call.
	Reason string
}

// Ranked is one scored pair as returned to callers.
type Ranked struct {
	recommendation.Recommendation
	JobTitle string                     `json:"job_title"`
	Company  string                     `json:"company"`
	PostedAt time.Time                  `json:"posted_at"`
	Outcome  recommendation.SaveOutcome `json:"outcome,omitempty"`
}

type RecommendationUsecase struct {
	candidates    repository.CandidateRepository
	jobs          repository.JobRepository
	tests         repository.TestRepository
	dismissals    repository.DismissalRepository
	recs          repository.RecommendationRepository
	runs          repository.RecomputeRunRepository
	state         *ActiveState
	employability employability.Provider
	invalidator   *CacheInvalidator
	store         cache.Store
	engine        *matching.Engine
	terms         *termCache
	cfg           RecommendationSettings
	log           *zap.Logger
	now           func() time.Time
}

type RecommendationDeps struct {
	Candidates    repository.CandidateRepository
	Jobs          repository.JobRepository
	Tests         repository.TestRepository
	Dismissals    repository.DismissalRepository
	Recs          repository.RecommendationRepository
	Runs          repository.RecomputeRunRepository
	State         *ActiveState
	Employability employability.Provider
	Invalidator   *CacheInvalidator
	Store         cache.Store
}

func NewRecommendationUsecase(d RecommendationDeps, cfg RecommendationSettings, log *zap.Logger) *RecommendationUsecase {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 8
	}
	if cfg.AuditThreshold <= 0 {
		cfg.AuditThreshold = 5
	}
	return &RecommendationUsecase{
		candidates:    d.Candidates,
		jobs:          d.Jobs,
		tests:         d.Tests,
		dismissals:    d.Dismissals,
		recs:          d.Recs,
		runs:          d.Runs,
		state:         d.State,
		employability: d.Employability,
		invalidator:   d.Invalidator,
		store:         d.Store,
		engine:        matching.NewEngine(),
		terms:         newTermCache(),
		cfg:           cfg,
		log:           logger.OrNop(log),
		now:           time.Now,
	}
}

func (u *RecommendationUsecase) limits(p Params) (int, float64) {
	limit := p.Limit
	if limit <= 0 {
		limit = u.cfg.DefaultLimit
	}
	if limit > u.cfg.MaxLimit {
		limit = u.cfg.MaxLimit
	}
	minScore := u.cfg.DefaultMinScore
	if p.MinScore != nil {
		minScore = *p.MinScore
	}
	return limit, minScore
}

// candidateInputs is everything about one candidate that does not depend on the job.
type candidateInputs struct {
	candidate     candidate.Candidate
	results       []candidate.TestResult
	terms         *feature.TermVector
	employability float64
}

func (u *RecommendationUsecase) prepareCandidate(ctx context.Context, snap *ActiveSnapshot, c candidate.Candidate, results []candidate.TestResult) candidateInputs {
	in := candidateInputs{candidate: c, results: results}
	if u.employability != nil {
		in.employability = u.employability.Score(ctx, c.ID)
	}
	if snap.Vocabulary != nil {
		latest := candidate.LatestCompleted(results)
		withEffective := c
		withEffective.Skills = candidate.EffectiveSkills(c, latest, snap.Weights.TestPassThreshold, snap.Catalog)
		tv := snap.Vocabulary.Transform(feature.CandidateDocument(withEffective))
		in.terms = &tv
	}
	return in
}

func (u *RecommendationUsecase) score(snap *ActiveSnapshot, ci candidateInputs, tests []candidate.TechnicalTest, j job.Job, now time.Time) recommendation.Recommendation {
	res := u.engine.Score(matching.Input{
		Candidate:      ci.candidate,
		Job:            j,
		Weights:        snap.Weights,
		Catalog:        snap.Catalog,
		Vocabulary:     snap.Vocabulary,
		CandidateTerms: ci.terms,
		JobTerms:       u.terms.jobTerms(snap.Vocabulary, j),
		Model:          snap.Model,
		Tests:          tests,
		Results:        ci.results,
		Employability:  ci.employability,
		Now:            now,
	})
	return res.Recommendation(ci.candidate.ID, j.ID)
}

func (u *RecommendationUsecase) save(ctx context.Context, rec recommendation.Recommendation, reason string) (recommendation.SaveOutcome, error) {
	threshold := u.cfg.AuditThreshold
	return u.recs.Save(ctx, rec, func(prev *recommendation.Recommendation) *recommendation.Audit {
		if prev == nil {
			return nil
		}
		return recommendation.NewAudit(*prev, rec, threshold, reason)
	})
}

// RecommendForCandidate scores the candidate against every open, non-dismissed job.
func (u *RecommendationUsecase) RecommendForCandidate(ctx context.Context, candidateID uuid.UUID, p Params) ([]Ranked, error) {
	limit, minScore := u.limits(p)
	now := u.now().UTC()

	snap, err := u.state.Current(ctx)
	if err != nil {
		return nil, err
	}
	c, err := u.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	results, err := u.tests.ListResults(ctx, []uuid.UUID{c.ID})
	if err != nil {
		return nil, err
	}
	tests, err := u.tests.ListTests(ctx)
	if err != nil {
		return nil, err
	}
	jobs, err := u.jobs.ListEligible(ctx, now)
	if err != nil {
		return nil, err
	}
	dismissed, err := u.dismissals.DismissedJobs(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	open := make([]job.Job, 0, len(jobs))
	for _, j := range jobs {
		if _, ok := dismissed[j.ID]; ok || !j.Eligible(now) {
			continue
		}
		open = append(open, j)
	}

	ci := u.prepareCandidate(ctx, snap, c, results[c.ID])
	out := make([]Ranked, len(open))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Parallelism)
	for i := range open {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			j := open[i]
			rec := u.score(snap, ci, tests, j, now)
			r := Ranked{Recommendation: rec, JobTitle: j.Title, Company: j.Company, PostedAt: j.PostedAt}
			if p.Persist {
				outcome, err := u.save(gctx, rec, reasonOr(p.Reason, "generate"))
				if err != nil {
					return err
				}
				r.Outcome = outcome
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if p.Persist {
		u.invalidator.InvalidateUser(c.UserID)
	}
	return rankJobs(out, minScore, limit), nil
}

// RecommendForJob ranks candidates for one open job. Nil candidateIDs means every candidate.
func (u *RecommendationUsecase) RecommendForJob(ctx context.Context, jobID uuid.UUID, candidateIDs []uuid.UUID, p Params) ([]Ranked, error) {
	limit, minScore := u.limits(p)
	now := u.now().UTC()

	snap, err := u.state.Current(ctx)
	if err != nil {
		return nil, err
	}
	j, err := u.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !j.Eligible(now) {
		return nil, fmt.Errorf("%w: job %s is not open", domain.ErrValidation, jobID)
	}

	var cands []candidate.Candidate
	if candidateIDs == nil {
		cands, err = u.candidates.ListAll(ctx)
	} else {
		cands, err = u.candidates.ListByIDs(ctx, candidateIDs)
	}
	if err != nil {
		return nil, err
	}
	dismissed, err := u.dismissals.DismissedCandidates(ctx, jobID)
	if err != nil {
		return nil, err
	}
	kept := make([]candidate.Candidate, 0, len(cands))
	ids := make([]uuid.UUID, 0, len(cands))
	for _, c := range cands {
		if _, ok := dismissed[c.ID]; ok {
			continue
		}
		kept = append(kept, c)
		ids = append(ids, c.ID)
	}
	results, err := u.tests.ListResults(ctx, ids)
	if err != nil {
		return nil, err
	}
	tests, err := u.tests.ListTests(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Ranked, len(kept))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Parallelism)
	for i := range kept {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ci := u.prepareCandidate(gctx, snap, kept[i], results[kept[i].ID])
			rec := u.score(snap, ci, tests, j, now)
			r := Ranked{Recommendation: rec, JobTitle: j.Title, Company: j.Company, PostedAt: j.PostedAt}
			if p.Persist {
				outcome, err := u.save(gctx, rec, reasonOr(p.Reason, "generate"))
				if err != nil {
					return err
				}
				r.Outcome = outcome
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if p.Persist {
		u.invalidator.InvalidateAll()
	}
	return rankCandidates(out, minScore, limit), nil
}

// ScorePair computes one fresh breakdown, persisting it when persist is set.
func (u *RecommendationUsecase) ScorePair(ctx context.Context, candidateID, jobID uuid.UUID, persist bool) (Ranked, error) {
	now := u.now().UTC()
	snap, err := u.state.Current(ctx)
	if err != nil {
		return Ranked{}, err
	}
	c, err := u.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return Ranked{}, err
	}
	j, err := u.jobs.GetByID(ctx, jobID)
	if err != nil {
		return Ranked{}, err
	}
	if !j.Eligible(now) {
		return Ranked{}, fmt.Errorf("%w: job %s is not open", domain.ErrValidation, jobID)
	}
	results, err := u.tests.ListResults(ctx, []uuid.UUID{c.ID})
	if err != nil {
		return Ranked{}, err
	}
	tests, err := u.tests.ListTests(ctx)
	if err != nil {
		return Ranked{}, err
	}

	ci := u.prepareCandidate(ctx, snap, c, results[c.ID])
	rec := u.score(snap, ci, tests, j, now)
	r := Ranked{Recommendation: rec, JobTitle: j.Title, Company: j.Company, PostedAt: j.PostedAt}
	if persist {
		outcome, err := u.save(ctx, rec, "pair")
		if err != nil {
			return Ranked{}, err
		}
		r.Outcome = outcome
		u.invalidator.InvalidateUser(c.UserID)
	}
	return r, nil
}

// ListForCandidate reads persisted recommendations through the per-user cache.
func (u *RecommendationUsecase) ListForCandidate(ctx context.Context, c candidate.Candidate, p Params) ([]Ranked, error) {
	limit, minScore := u.limits(p)
	key := cache.RecommendationsKey(c.UserID, limit, minScore)

	if u.store != nil {
		var cached []Ranked
		if ok, err := u.store.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}

	rows, err := u.recs.ListForCandidate(ctx, c.ID, repository.ListFilter{Limit: limit, MinScore: minScore, Now: u.now().UTC()})
	if err != nil {
		return nil, err
	}
	out := make([]Ranked, 0, len(rows))
	for _, l := range rows {
		out = append(out, Ranked{Recommendation: l.Recommendation, JobTitle: l.JobTitle, Company: l.Company, PostedAt: l.PostedAt})
	}

	if u.store != nil {
		if err := u.store.SetJSON(ctx, key, out, u.cfg.CacheTTL); err != nil {
			u.log.Debug("recommendation cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}

// ListForJob reads persisted recommendations of one job, best candidates first.
func (u *RecommendationUsecase) ListForJob(ctx context.Context, jobID uuid.UUID, p Params) ([]Ranked, error) {
	limit, minScore := u.limits(p)
	rows, err := u.recs.ListForJob(ctx, jobID, repository.ListFilter{Limit: limit, MinScore: minScore, Now: u.now().UTC()})
	if err != nil {
		return nil, err
	}
	out := make([]Ranked, 0, len(rows))
	for _, l := range rows {
		out = append(out, Ranked{Recommendation: l.Recommendation, JobTitle: l.JobTitle, Company: l.Company, PostedAt: l.PostedAt})
	}
	return out, nil
}

func (u *RecommendationUsecase) CandidateByUser(ctx context.Context, userID uuid.UUID) (candidate.Candidate, error) {
	return u.candidates.GetByUserID(ctx, userID)
}

func rankJobs(in []Ranked, minScore float64, limit int) []Ranked {
	out := make([]Ranked, 0, len(in))
	for _, r := range in {
		if r.OverallScore < minScore {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return recommendation.Less(out[i].Recommendation, out[j].Recommendation, out[i].PostedAt, out[j].PostedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func rankCandidates(in []Ranked, minScore float64, limit int) []Ranked {
	out := make([]Ranked, 0, len(in))
	for _, r := range in {
		if r.OverallScore < minScore {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OverallScore != out[j].OverallScore {
			return out[i].OverallScore > out[j].OverallScore
		}
		return out[i].CandidateID.String() < out[j].CandidateID.String()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func reasonOr(reason, fallback string) string {
	if reason == "" {
		return fallback
	}
	return reason
}
