package handler

import (
	"context"
	"time"

	"skill-match/internal/delivery/http/dto"
	"skill-match/internal/delivery/http/middleware"
	"skill-match/internal/domain"
	"skill-match/internal/pipeline"
	"skill-match/internal/pkg/response"
	"skill-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type AdminRecomputeHandler struct {
	uc    AdminRecommendations
	queue EventQueue
}

func NewAdminRecomputeHandler(uc AdminRecommendations, queue EventQueue) *AdminRecomputeHandler {
	return &AdminRecomputeHandler{uc: uc, queue: queue}
}

func (h *AdminRecomputeHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Post("/recompute", h.Full)
	r.Post("/recompute/candidates/:candidate_id", h.Candidate)
	r.Post("/recompute/jobs/:job_id", h.Job)
	r.Get("/recompute/runs/:run_id", h.GetRun)
	r.Get("/jobs/:job_id/candidates", h.JobCandidates)
}

func (h *AdminRecomputeHandler) Full(c fiber.Ctx) error {
	return h.startRun(c, usecase.BatchRequest{Kind: usecase.BatchFull}, pipeline.FullRecompute())
}

func (h *AdminRecomputeHandler) Candidate(c fiber.Ctx) error {
	id, err := pathID(c, "candidate_id")
	if err != nil {
		return err
	}
	return h.startRun(c, usecase.BatchRequest{Kind: usecase.BatchCandidate, CandidateID: id}, pipeline.CandidateChanged(id))
}

func (h *AdminRecomputeHandler) Job(c fiber.Ctx) error {
	id, err := pathID(c, "job_id")
	if err != nil {
		return err
	}
	return h.startRun(c, usecase.BatchRequest{Kind: usecase.BatchJob, JobID: id}, pipeline.JobChanged(id))
}

// startRun records the run first so its id can be polled, then hands the batch to the scheduler.
func (h *AdminRecomputeHandler) startRun(c fiber.Ctx, req usecase.BatchRequest, ev pipeline.Event) error {
	if h.queue == nil {
		return middleware.NewAppError(fiber.StatusServiceUnavailable, domain.CodeExternalDependencyUnavailable, "Scheduler is not running", nil)
	}
	run, err := h.uc.StartRun(c.Context(), req)
	if err != nil {
		return middleware.FromDomain(err)
	}
	ev.Run = &run
	queued, err := h.queue.Enqueue(ev)
	if err != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Context()), 5*time.Second)
		defer cancel()
		_ = h.uc.FailRun(ctx, run, err)
		return middleware.NewAppError(fiber.StatusServiceUnavailable, domain.CodeExternalDependencyUnavailable, "Scheduler queue is full", err)
	}
	return response.Success(c, fiber.StatusAccepted, response.MessageAccepted, dto.RunAcceptedResponse{Run: run, Queued: queued})
}

func (h *AdminRecomputeHandler) GetRun(c fiber.Ctx) error {
	id, err := pathID(c, "run_id")
	if err != nil {
		return err
	}
	run, err := h.uc.Run(c.Context(), id)
	if err != nil {
		return middleware.FromDomain(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, run)
}

// JobCandidates lists stored recommendations of a job; fresh=true rescores all candidates.
func (h *AdminRecomputeHandler) JobCandidates(c fiber.Ctx) error {
	jobID, err := pathID(c, "job_id")
	if err != nil {
		return err
	}
	p, err := listParams(c)
	if err != nil {
		return err
	}

	var items []usecase.Ranked
	if parseQueryBool(c, "fresh") {
		p.Persist = parseQueryBool(c, "persist")
		p.Reason = "admin request"
		items, err = h.uc.RecommendForJob(c.Context(), jobID, nil, p)
	} else {
		items, err = h.uc.ListForJob(c.Context(), jobID, p)
	}
	if err != nil {
		return middleware.FromDomain(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewRecommendationList(items))
}
