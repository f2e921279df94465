package handler

import (
	"skill-match/internal/delivery/http/dto"
	"skill-match/internal/delivery/http/middleware"
	"skill-match/internal/pkg/response"
	"skill-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type RecommendationHandler struct {
	uc CandidateRecommendations
}

type generateRecommendationsRequest struct {
	Limit    int      `json:"limit"`
	MinScore *float64 `json:"min_score"`
}

func NewRecommendationHandler(uc CandidateRecommendations) *RecommendationHandler {
	return &RecommendationHandler{uc: uc}
}

func (h *RecommendationHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	grp := r.Group("/recommendations")
	grp.Get("/", h.List)
	grp.Post("/generate", h.Generate)
	grp.Get("/jobs/:job_id", h.Breakdown)
}

// List returns the persisted recommendations of the calling candidate.
func (h *RecommendationHandler) List(c fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	p, err := listParams(c)
	if err != nil {
		return err
	}
	cand, err := h.uc.CandidateByUser(c.Context(), userID)
	if err != nil {
		return middleware.FromDomain(err)
	}
	items, err := h.uc.ListForCandidate(c.Context(), cand, p)
	if err != nil {
		return middleware.FromDomain(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewRecommendationList(items))
}

// Generate rescores every open job for the caller and persists the results.
func (h *RecommendationHandler) Generate(c fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req generateRecommendationsRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return middleware.BadRequest("Invalid request body", err)
		}
	}
	if req.Limit < 0 || (req.MinScore != nil && (*req.MinScore < 0 || *req.MinScore > 100)) {
		return middleware.BadRequest("limit must be positive and min_score within [0,100]", nil)
	}

	cand, err := h.uc.CandidateByUser(c.Context(), userID)
	if err != nil {
		return middleware.FromDomain(err)
	}
	items, err := h.uc.RecommendForCandidate(c.Context(), cand.ID, usecase.Params{
		Limit:    req.Limit,
		MinScore: req.MinScore,
		Persist:  true,
		Reason:   "candidate request",
	})
	if err != nil {
		return middleware.FromDomain(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewRecommendationList(items))
}

// Breakdown scores the caller against one job without persisting.
func (h *RecommendationHandler) Breakdown(c fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	jobID, err := pathID(c, "job_id")
	if err != nil {
		return err
	}
	cand, err := h.uc.CandidateByUser(c.Context(), userID)
	if err != nil {
		return middleware.FromDomain(err)
	}
	r, err := h.uc.ScorePair(c.Context(), cand.ID, jobID, false)
	if err != nil {
		return middleware.FromDomain(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewRecommendationResponse(r))
}
