package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"skill-match/internal/domain"
	"skill-match/internal/domain/cluster"
	"skill-match/internal/domain/feature"
	"skill-match/internal/infrastructure/employability"
	"skill-match/internal/pkg/logger"
	"skill-match/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ClusterSettings struct {
	MinCandidates int
	MinJobs       int
	KOverride     int
	Seed          int64
	Freshness     time.Duration
}

type TrainResult struct {
	Model   *cluster.Model `json:"-"`
	Skipped bool           `json:"skipped"`
	Reason  string         `json:"reason,omitempty"`
}

type ClusterUsecase struct {
	candidates    repository.CandidateRepository
	jobs          repository.JobRepository
	tests         repository.TestRepository
	models        repository.ClusterModelRepository
	state         *ActiveState
	employability employability.Provider
	cfg           ClusterSettings
	log           *zap.Logger
	now           func() time.Time

	mu sync.Mutex
}

func NewClusterUsecase(
	candidates repository.CandidateRepository,
	jobs repository.JobRepository,
	tests repository.TestRepository,
	models repository.ClusterModelRepository,
	state *ActiveState,
	provider employability.Provider,
	cfg ClusterSettings,
	log *zap.Logger,
) *ClusterUsecase {
	return &ClusterUsecase{
		candidates:    candidates,
		jobs:          jobs,
		tests:         tests,
		models:        models,
		state:         state,
		employability: provider,
		cfg:           cfg,
		log:           logger.OrNop(log),
		now:           time.Now,
	}
}

// Active returns the model new scores are computed with.
func (u *ClusterUsecase) Active(ctx context.Context) (*cluster.Model, error) {
	snap, err := u.state.Current(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Model == nil {
		return nil, fmt.Errorf("%w: no active cluster model", domain.ErrDataNotFound)
	}
	return snap.Model, nil
}

// Retrain fits and activates a new model unless the active one is still fresh and matches
// the current catalog. On ErrInsufficientData the previous model stays active.
func (u *ClusterUsecase) Retrain(ctx context.Context, force bool) (TrainResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	start := u.now()
	snap, err := u.state.Current(ctx)
	if err != nil {
		return TrainResult{}, err
	}
	dim := feature.Dimension(snap.Catalog)
	fingerprint := snap.Catalog.Fingerprint()

	if !force && snap.Model.Compatible(fingerprint, dim) && u.cfg.Freshness > 0 &&
		start.Sub(snap.Model.TrainedAt) < u.cfg.Freshness {
		return TrainResult{Model: snap.Model, Skipped: true, Reason: "active model is fresh"}, nil
	}

	cands, err := u.candidates.ListAll(ctx)
	if err != nil {
		return TrainResult{}, err
	}
	jobs, err := u.jobs.ListEligible(ctx, start.UTC())
	if err != nil {
		return TrainResult{}, err
	}
	ids := make([]uuid.UUID, 0, len(cands))
	for _, c := range cands {
		ids = append(ids, c.ID)
	}
	results, err := u.tests.ListResults(ctx, ids)
	if err != nil {
		return TrainResult{}, err
	}

	candVecs := make([][]float64, 0, len(cands))
	for _, c := range cands {
		empl := 0.0
		if u.employability != nil {
			empl = u.employability.Score(ctx, c.ID)
		}
		candVecs = append(candVecs, feature.CandidateVector(c, results[c.ID], snap.Weights.TestPassThreshold, empl, snap.Catalog))
	}
	jobVecs := make([][]float64, 0, len(jobs))
	for _, j := range jobs {
		jobVecs = append(jobVecs, feature.JobVector(j, snap.Catalog))
	}

	km := cluster.DefaultKMeansConfig()
	km.Seed = u.cfg.Seed
	model, err := cluster.Train(candVecs, jobVecs, distinctSkills(snap.Catalog.Len(), candVecs, jobVecs), fingerprint, cluster.TrainConfig{
		MinCandidates: u.cfg.MinCandidates,
		MinJobs:       u.cfg.MinJobs,
		KOverride:     u.cfg.KOverride,
		KMeans:        km,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			u.log.Warn("cluster training skipped", zap.Error(err))
		}
		return TrainResult{}, err
	}
	model.TrainedAt = u.now().UTC()

	if err := u.models.SaveAndActivate(ctx, model); err != nil {
		return TrainResult{}, err
	}
	if _, err := u.state.Refresh(ctx); err != nil {
		return TrainResult{}, err
	}

	u.log.Info("cluster model trained",
		zap.String("model_id", model.ID.String()),
		zap.Int("k", model.K),
		zap.Float64("inertia", model.Inertia),
		zap.Float64("silhouette", model.Silhouette),
		zap.Int("candidates", model.CandidateCount),
		zap.Int("jobs", model.JobCount),
		zap.Duration("duration", u.now().Sub(start)),
	)
	return TrainResult{Model: model}, nil
}

// distinctSkills counts catalog dimensions set in at least one vector.
func distinctSkills(skillDims int, groups ...[][]float64) int {
	seen := make([]bool, skillDims)
	n := 0
	for _, g := range groups {
		for _, v := range g {
			for d := 0; d < skillDims && d < len(v); d++ {
				if v[d] > 0 && !seen[d] {
					seen[d] = true
					n++
				}
			}
		}
	}
	return n
}
