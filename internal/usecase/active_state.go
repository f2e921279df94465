package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"skill-match/internal/domain"
	"skill-match/internal/domain/cluster"
	"skill-match/internal/domain/feature"
	"skill-match/internal/domain/skill"
	"skill-match/internal/domain/weights"
	"skill-match/internal/pkg/logger"
	"skill-match/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActiveSnapshot is the configuration one scoring pass runs under. It is never mutated after
// publication, so a pass that started before an activation finishes on the old snapshot.
type ActiveSnapshot struct {
	Weights    weights.ScoringWeights
	Model      *cluster.Model
	Vocabulary *feature.Vocabulary
	Catalog    *skill.Catalog
	LoadedAt   time.Time
}

type ActiveState struct {
	skills  repository.SkillRepository
	weights repository.WeightsRepository
	models  repository.ClusterModelRepository
	vocab   repository.VocabularyRepository
	ttl     time.Duration
	log     *zap.Logger
	now     func() time.Time

	current atomic.Pointer[ActiveSnapshot]
	reload  sync.Mutex
}

func NewActiveState(
	skills repository.SkillRepository,
	weightsRepo repository.WeightsRepository,
	models repository.ClusterModelRepository,
	vocab repository.VocabularyRepository,
	ttl time.Duration,
	log *zap.Logger,
) *ActiveState {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ActiveState{
		skills:  skills,
		weights: weightsRepo,
		models:  models,
		vocab:   vocab,
		ttl:     ttl,
		log:     logger.OrNop(log),
		now:     time.Now,
	}
}

// Current returns the published snapshot, reloading it once it is older than the TTL.
func (s *ActiveState) Current(ctx context.Context) (*ActiveSnapshot, error) {
	if snap := s.current.Load(); snap != nil && s.now().Sub(snap.LoadedAt) < s.ttl {
		return snap, nil
	}
	return s.Refresh(ctx)
}

// Refresh reloads every active artifact and publishes a new snapshot. When the reload fails
// and an older snapshot exists, the older one keeps serving.
func (s *ActiveState) Refresh(ctx context.Context) (*ActiveSnapshot, error) {
	s.reload.Lock()
	defer s.reload.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		if prev := s.current.Load(); prev != nil {
			s.log.Warn("active state reload failed, keeping previous snapshot", zap.Error(err))
			return prev, nil
		}
		return nil, err
	}
	s.current.Store(snap)
	return snap, nil
}

func (s *ActiveState) load(ctx context.Context) (*ActiveSnapshot, error) {
	skills, err := s.skills.ListSkills(ctx)
	if err != nil {
		return nil, fmt.Errorf("load skill catalog: %w", err)
	}

	w, err := s.weights.GetActive(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrDataNotFound) {
			return nil, fmt.Errorf("load active weights: %w", err)
		}
		s.log.Warn("no active scoring weights, using balanced profile")
		w = weights.Balanced()
	}

	model, err := s.models.GetActive(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrDataNotFound) {
			return nil, fmt.Errorf("load active cluster model: %w", err)
		}
		model = nil
	}

	vocab, err := s.vocab.GetActive(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrDataNotFound) {
			return nil, fmt.Errorf("load active vocabulary: %w", err)
		}
		vocab = nil
	}

	return &ActiveSnapshot{
		Weights:    w,
		Model:      model,
		Vocabulary: vocab,
		Catalog:    skill.NewCatalog(skills),
		LoadedAt:   s.now(),
	}, nil
}

// ActivateWeights flips the active profile and republishes the snapshot.
func (s *ActiveState) ActivateWeights(ctx context.Context, id uuid.UUID, expected *uuid.UUID) (*ActiveSnapshot, error) {
	if _, err := s.weights.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.weights.Activate(ctx, id, expected); err != nil {
		return nil, err
	}
	s.log.Info("scoring weights activated", zap.String("weights_id", id.String()))
	return s.Refresh(ctx)
}
