package handler

import (
	"skill-match/internal/delivery/http/dto"
	"skill-match/internal/delivery/http/middleware"
	"skill-match/internal/domain/weights"
	"skill-match/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// AdminModelHandler serves the versioned scoring artifacts: cluster model, weight profiles
// and the TF-IDF vocabulary.
type AdminModelHandler struct {
	clusters   ClusterService
	weights    WeightsService
	vocabulary VocabularyService
}

type createWeightsRequest struct {
	Name                string   `json:"name"`
	SkillWeight         float64  `json:"skill_weight"`
	ContentWeight       float64  `json:"content_weight"`
	ClusterWeight       float64  `json:"cluster_weight"`
	TestWeight          float64  `json:"test_weight"`
	ExperienceWeight    float64  `json:"experience_weight"`
	SalaryWeight        float64  `json:"salary_weight"`
	LocationWeight      float64  `json:"location_weight"`
	RemoteWeight        float64  `json:"remote_weight"`
	EmployabilityWeight float64  `json:"employability_weight"`
	RequiredSkillShare  *float64 `json:"required_skill_share"`
	CategoryWeighted    bool     `json:"category_weighted"`
	TestPassThreshold   *float64 `json:"test_pass_threshold"`
	RequiredTestWeight  *float64 `json:"required_test_weight"`
	OptionalTestWeight  *float64 `json:"optional_test_weight"`
	Activate            bool     `json:"activate"`
}

func (r createWeightsRequest) toDomain() weights.ScoringWeights {
	return weights.ScoringWeights{
		Name:               r.Name,
		Skill:              r.SkillWeight,
		Content:            r.ContentWeight,
		Cluster:            r.ClusterWeight,
		Test:               r.TestWeight,
		Experience:         r.ExperienceWeight,
		Salary:             r.SalaryWeight,
		Location:           r.LocationWeight,
		Remote:             r.RemoteWeight,
		Employability:      r.EmployabilityWeight,
		RequiredSkillShare: orDefault(r.RequiredSkillShare, weights.DefaultRequiredSkillShare),
		CategoryWeighted:   r.CategoryWeighted,
		TestPassThreshold:  orDefault(r.TestPassThreshold, weights.DefaultTestPassThreshold),
		RequiredTestWeight: orDefault(r.RequiredTestWeight, weights.DefaultRequiredTestWeight),
		OptionalTestWeight: orDefault(r.OptionalTestWeight, weights.DefaultOptionalTestWeight),
	}
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

type activateWeightsRequest struct {
	ExpectedActiveID *uuid.UUID `json:"expected_active_id"`
}

func NewAdminModelHandler(clusters ClusterService, w WeightsService, vocabulary VocabularyService) *AdminModelHandler {
	return &AdminModelHandler{clusters: clusters, weights: w, vocabulary: vocabulary}
}

func (h *AdminModelHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/cluster-model", h.ClusterModel)
	r.Post("/cluster-model/retrain", h.Retrain)
	r.Get("/weights", h.ListWeights)
	r.Post("/weights", h.CreateWeights)
	r.Post("/weights/:id/activate", h.ActivateWeights)
	r.Post("/vocabulary/refit", h.RefitVocabulary)
}

func (h *AdminModelHandler) ClusterModel(c fiber.Ctx) error {
	m, err := h.clusters.Active(c.Context())
	if err != nil {
		return middleware.FromDomain(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewClusterModelResponse(m))
}

func (h *AdminModelHandler) Retrain(c fiber.Ctx) error {
	res, err := h.clusters.Retrain(c.Context(), parseQueryBool(c, "force"))
	if err != nil {
		return middleware.FromDomain(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewTrainResponse(res))
}

func (h *AdminModelHandler) ListWeights(c fiber.Ctx) error {
	items, err := h.weights.List(c.Context())
	if err != nil {
		return middleware.FromDomain(err)
	}
	out := make([]dto.WeightsResponse, 0, len(items))
	for _, w := range items {
		out = append(out, dto.NewWeightsResponse(w))
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, out)
}

func (h *AdminModelHandler) CreateWeights(c fiber.Ctx) error {
	var req createWeightsRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.BadRequest("Invalid request body", err)
	}
	created, err := h.weights.Create(c.Context(), req.toDomain())
	if err != nil {
		return middleware.FromDomain(err)
	}
	if req.Activate {
		created, err = h.weights.Activate(c.Context(), created.ID, nil)
		if err != nil {
			return middleware.FromDomain(err)
		}
	}
	return response.Success(c, fiber.StatusCreated, response.MessageCreated, dto.NewWeightsResponse(created))
}

func (h *AdminModelHandler) ActivateWeights(c fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req activateWeightsRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return middleware.BadRequest("Invalid request body", err)
		}
	}
	w, err := h.weights.Activate(c.Context(), id, req.ExpectedActiveID)
	if err != nil {
		return middleware.FromDomain(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewWeightsResponse(w))
}

func (h *AdminModelHandler) RefitVocabulary(c fiber.Ctx) error {
	res, err := h.vocabulary.Refit(c.Context(), parseQueryBool(c, "force"))
	if err != nil {
		return middleware.FromDomain(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}
