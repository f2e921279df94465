package handler

import (
	"skill-match/internal/delivery/http/dto"
	"skill-match/internal/delivery/http/middleware"
	"skill-match/internal/domain"
	"skill-match/internal/pipeline"
	"skill-match/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// AdminOpsHandler exposes cache maintenance and the change-event hooks used by the systems
// that own jobs, profiles and tests.
type AdminOpsHandler struct {
	cache CacheService
	queue EventQueue
}

type testCompletedRequest struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	SkillID     uuid.UUID `json:"skill_id"`
}

func NewAdminOpsHandler(cache CacheService, queue EventQueue) *AdminOpsHandler {
	return &AdminOpsHandler{cache: cache, queue: queue}
}

func (h *AdminOpsHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/cache/users/:user_id", h.UserCacheKeys)
	r.Delete("/cache/users/:user_id", h.InvalidateUser)
	r.Delete("/cache", h.InvalidateAll)

	events := r.Group("/events")
	events.Post("/jobs/:job_id", h.JobChanged)
	events.Post("/candidates/:candidate_id", h.CandidateChanged)
	events.Post("/tests", h.TestCompleted)
}

func (h *AdminOpsHandler) UserCacheKeys(c fiber.Ctx) error {
	id, err := pathID(c, "user_id")
	if err != nil {
		return err
	}
	keys, err := h.cache.UserKeys(c.Context(), id)
	if err != nil {
		return middleware.FromDomain(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.CacheKeysResponse{UserID: id, Keys: keys})
}

func (h *AdminOpsHandler) InvalidateUser(c fiber.Ctx) error {
	id, err := pathID(c, "user_id")
	if err != nil {
		return err
	}
	if err := h.cache.InvalidateUserNow(c.Context(), id); err != nil {
		return middleware.FromDomain(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *AdminOpsHandler) InvalidateAll(c fiber.Ctx) error {
	if err := h.cache.InvalidateAllNow(c.Context()); err != nil {
		return middleware.FromDomain(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, nil)
}

func (h *AdminOpsHandler) JobChanged(c fiber.Ctx) error {
	id, err := pathID(c, "job_id")
	if err != nil {
		return err
	}
	return h.enqueue(c, pipeline.JobChanged(id))
}

func (h *AdminOpsHandler) CandidateChanged(c fiber.Ctx) error {
	id, err := pathID(c, "candidate_id")
	if err != nil {
		return err
	}
	return h.enqueue(c, pipeline.CandidateChanged(id))
}

func (h *AdminOpsHandler) TestCompleted(c fiber.Ctx) error {
	var req testCompletedRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.BadRequest("Invalid request body", err)
	}
	return h.enqueue(c, pipeline.TestCompleted(req.CandidateID, req.SkillID))
}

func (h *AdminOpsHandler) enqueue(c fiber.Ctx, ev pipeline.Event) error {
	if h.queue == nil {
		return middleware.NewAppError(fiber.StatusServiceUnavailable, domain.CodeExternalDependencyUnavailable, "Scheduler is not running", nil)
	}
	queued, err := h.queue.Enqueue(ev)
	if err != nil {
		return middleware.FromDomain(err)
	}
	return response.Success(c, fiber.StatusAccepted, response.MessageAccepted, dto.EventAcceptedResponse{Event: ev.Key(), Queued: queued})
}
