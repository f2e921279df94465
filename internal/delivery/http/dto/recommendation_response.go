package dto

import (
	"time"

	"skill-match/internal/domain/recommendation"
	"skill-match/internal/usecase"

	"github.com/google/uuid"
)

type RecommendationResponse struct {
	ID                *uuid.UUID               `json:"id,omitempty"`
	CandidateID       uuid.UUID                `json:"candidate_id"`
	JobID             uuid.UUID                `json:"job_id"`
	JobTitle          string                   `json:"job_title,omitempty"`
	Company           string                   `json:"company,omitempty"`
	PostedAt          *time.Time               `json:"posted_at,omitempty"`
	OverallScore      float64                  `json:"overall_score"`
	Scores            recommendation.Scores    `json:"scores"`
	Breakdown         recommendation.Breakdown `json:"breakdown"`
	WeightsID         *uuid.UUID               `json:"weights_id,omitempty"`
	ClusterModelID    *uuid.UUID               `json:"cluster_model_id,omitempty"`
	VocabularyVersion int                      `json:"vocabulary_version"`
	AlgorithmVersion  string                   `json:"algorithm_version"`
	ComputedAt        time.Time                `json:"computed_at"`
	Outcome           string                   `json:"outcome,omitempty"`
}

type RecommendationListResponse struct {
	Items []RecommendationResponse `json:"items"`
	Count int                      `json:"count"`
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func NewRecommendationResponse(r usecase.Ranked) RecommendationResponse {
	res := RecommendationResponse{
		ID:                optionalID(r.ID),
		CandidateID:       r.CandidateID,
		JobID:             r.JobID,
		JobTitle:          r.JobTitle,
		Company:           r.Company,
		OverallScore:      r.OverallScore,
		Scores:            r.Scores,
		Breakdown:         r.Breakdown,
		WeightsID:         optionalID(r.WeightsID),
		ClusterModelID:    r.ClusterModelID,
		VocabularyVersion: r.VocabularyVersion,
		AlgorithmVersion:  r.AlgorithmVersion,
		ComputedAt:        r.ComputedAt,
		Outcome:           string(r.Outcome),
	}
	if !r.PostedAt.IsZero() {
		p := r.PostedAt
		res.PostedAt = &p
	}
	return res
}

func NewRecommendationList(items []usecase.Ranked) RecommendationListResponse {
	out := make([]RecommendationResponse, 0, len(items))
	for _, it := range items {
		out = append(out, NewRecommendationResponse(it))
	}
	return RecommendationListResponse{Items: out, Count: len(out)}
}
