package dto

import (
	"time"

	"skill-match/internal/domain/cluster"
	"skill-match/internal/domain/weights"
	"skill-match/internal/repository"
	"skill-match/internal/usecase"

	"github.com/google/uuid"
)

type WeightsResponse struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	SkillWeight         float64   `json:"skill_weight"`
	ContentWeight       float64   `json:"content_weight"`
	ClusterWeight       float64   `json:"cluster_weight"`
	TestWeight          float64   `json:"test_weight"`
	ExperienceWeight    float64   `json:"experience_weight"`
	SalaryWeight        float64   `json:"salary_weight"`
	LocationWeight      float64   `json:"location_weight"`
	RemoteWeight        float64   `json:"remote_weight"`
	EmployabilityWeight float64   `json:"employability_weight"`
	RequiredSkillShare  float64   `json:"required_skill_share"`
	CategoryWeighted    bool      `json:"category_weighted"`
	TestPassThreshold   float64   `json:"test_pass_threshold"`
	RequiredTestWeight  float64   `json:"required_test_weight"`
	OptionalTestWeight  float64   `json:"optional_test_weight"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"created_at"`
}

func NewWeightsResponse(w weights.ScoringWeights) WeightsResponse {
	return WeightsResponse{
		ID:                  w.ID,
		Name:                w.Name,
		SkillWeight:         w.Skill,
		ContentWeight:       w.Content,
		ClusterWeight:       w.Cluster,
		TestWeight:          w.Test,
		ExperienceWeight:    w.Experience,
		SalaryWeight:        w.Salary,
		LocationWeight:      w.Location,
		RemoteWeight:        w.Remote,
		EmployabilityWeight: w.Employability,
		RequiredSkillShare:  w.RequiredSkillShare,
		CategoryWeighted:    w.CategoryWeighted,
		TestPassThreshold:   w.TestPassThreshold,
		RequiredTestWeight:  w.RequiredTestWeight,
		OptionalTestWeight:  w.OptionalTestWeight,
		Active:              w.Active,
		CreatedAt:           w.CreatedAt,
	}
}

type ClusterModelResponse struct {
	ID                 uuid.UUID `json:"id"`
	Version            int       `json:"version"`
	K                  int       `json:"k"`
	Dimension          int       `json:"dimension"`
	Inertia            float64   `json:"inertia"`
	Silhouette         float64   `json:"silhouette"`
	CandidateCount     int       `json:"candidate_count"`
	JobCount           int       `json:"job_count"`
	Iterations         int       `json:"iterations"`
	Seed               int64     `json:"seed"`
	CatalogFingerprint string    `json:"catalog_fingerprint"`
	TrainedAt          time.Time `json:"trained_at"`
	Active             bool      `json:"active"`
}

func NewClusterModelResponse(m *cluster.Model) *ClusterModelResponse {
	if m == nil {
		return nil
	}
	return &ClusterModelResponse{
		ID:                 m.ID,
		Version:            m.Version,
		K:                  m.K,
		Dimension:          m.Dimension(),
		Inertia:            m.Inertia,
		Silhouette:         m.Silhouette,
		CandidateCount:     m.CandidateCount,
		JobCount:           m.JobCount,
		Iterations:         m.Iterations,
		Seed:               m.Seed,
		CatalogFingerprint: m.CatalogFingerprint,
		TrainedAt:          m.TrainedAt,
		Active:             m.Active,
	}
}

type TrainResponse struct {
	Skipped bool                  `json:"skipped"`
	Reason  string                `json:"reason,omitempty"`
	Model   *ClusterModelResponse `json:"model"`
}

func NewTrainResponse(r usecase.TrainResult) TrainResponse {
	return TrainResponse{Skipped: r.Skipped, Reason: r.Reason, Model: NewClusterModelResponse(r.Model)}
}

type RunAcceptedResponse struct {
	Run    repository.RecomputeRun `json:"run"`
	Queued bool                    `json:"queued"`
}

type EventAcceptedResponse struct {
	Event  string `json:"event"`
	Queued bool   `json:"queued"`
}

type CacheKeysResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Keys   []string  `json:"keys"`
}
