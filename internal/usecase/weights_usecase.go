package usecase

import (
	"context"
	"strings"

	"skill-match/internal/domain/weights"
	"skill-match/internal/pkg/logger"
	"skill-match/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WeightsUsecase struct {
	repo  repository.WeightsRepository
	state *ActiveState
	log   *zap.Logger
}

func NewWeightsUsecase(repo repository.WeightsRepository, state *ActiveState, log *zap.Logger) *WeightsUsecase {
	return &WeightsUsecase{repo: repo, state: state, log: logger.OrNop(log)}
}

func (u *WeightsUsecase) List(ctx context.Context) ([]weights.ScoringWeights, error) {
	return u.repo.List(ctx)
}

// Create validates and stores an inactive profile as given.
func (u *WeightsUsecase) Create(ctx context.Context, w weights.ScoringWeights) (weights.ScoringWeights, error) {
	w.ID = uuid.Nil
	w.Name = strings.TrimSpace(w.Name)
	w.Active = false
	if err := w.Validate(); err != nil {
		return weights.ScoringWeights{}, err
	}
	created, err := u.repo.Create(ctx, w)
	if err != nil {
		return weights.ScoringWeights{}, err
	}
	u.log.Info("scoring weights created", zap.String("weights_id", created.ID.String()), zap.String("name", created.Name))
	return created, nil
}

// Activate returns the profile now in effect. A non-nil expected turns the flip into a
// compare-and-swap against the currently active id.
func (u *WeightsUsecase) Activate(ctx context.Context, id uuid.UUID, expected *uuid.UUID) (weights.ScoringWeights, error) {
	snap, err := u.state.ActivateWeights(ctx, id, expected)
	if err != nil {
		return weights.ScoringWeights{}, err
	}
	return snap.Weights, nil
}
