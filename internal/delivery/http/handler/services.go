package handler

import (
	"context"

	"skill-match/internal/domain/candidate"
	"skill-match/internal/domain/cluster"
	"skill-match/internal/domain/weights"
	"skill-match/internal/pipeline"
	"skill-match/internal/repository"
	"skill-match/internal/usecase"

	"github.com/google/uuid"
)

// CandidateRecommendations is the candidate-facing part of *usecase.RecommendationUsecase.
type CandidateRecommendations interface {
	CandidateByUser(ctx context.Context, userID uuid.UUID) (candidate.Candidate, error)
	ListForCandidate(ctx context.Context, c candidate.Candidate, p usecase.Params) ([]usecase.Ranked, error)
	RecommendForCandidate(ctx context.Context, candidateID uuid.UUID, p usecase.Params) ([]usecase.Ranked, error)
	ScorePair(ctx context.Context, candidateID, jobID uuid.UUID, persist bool) (usecase.Ranked, error)
}

type AdminRecommendations interface {
	RecommendForJob(ctx context.Context, jobID uuid.UUID, candidateIDs []uuid.UUID, p usecase.Params) ([]usecase.Ranked, error)
	ListForJob(ctx context.Context, jobID uuid.UUID, p usecase.Params) ([]usecase.Ranked, error)
	StartRun(ctx context.Context, req usecase.BatchRequest) (repository.RecomputeRun, error)
	FailRun(ctx context.Context, run repository.RecomputeRun, cause error) error
	Run(ctx context.Context, id uuid.UUID) (repository.RecomputeRun, error)
}

type EventQueue interface {
	Enqueue(e pipeline.Event) (bool, error)
}

type ClusterService interface {
	Active(ctx context.Context) (*cluster.Model, error)
	Retrain(ctx context.Context, force bool) (usecase.TrainResult, error)
}

type VocabularyService interface {
	Refit(ctx context.Context, force bool) (usecase.RefitResult, error)
}

type WeightsService interface {
	List(ctx context.Context) ([]weights.ScoringWeights, error)
	Create(ctx context.Context, w weights.ScoringWeights) (weights.ScoringWeights, error)
	Activate(ctx context.Context, id uuid.UUID, expected *uuid.UUID) (weights.ScoringWeights, error)
}

type CacheService interface {
	UserKeys(ctx context.Context, userID uuid.UUID) ([]string, error)
	InvalidateUserNow(ctx context.Context, userID uuid.UUID) error
	InvalidateAllNow(ctx context.Context) error
}

// Pinger is satisfied by the database pool and the cache store.
type Pinger interface {
	Ping(ctx context.Context) error
}
