package handler

import (
	"context"
	"time"

	"skill-match/internal/domain"
	"skill-match/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type HealthHandler struct {
	db      Pinger
	cache   Pinger
	timeout time.Duration
}

func NewHealthHandler(db, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, timeout: 2 * time.Second}
}

func (h *HealthHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Get("/health", h.Live)
	r.Get("/health/ready", h.Ready)
}

func (h *HealthHandler) Live(c fiber.Ctx) error {
	return response.Success(c, fiber.StatusOK, response.MessageOK, fiber.Map{"status": "up"})
}

// Ready fails only when the database is unreachable; a cache outage degrades to misses.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	checks := fiber.Map{"database": "up", "cache": "up"}
	if h.db == nil {
		checks["database"] = "not configured"
	} else if err := h.db.Ping(ctx); err != nil {
		return response.Error(c, fiber.StatusServiceUnavailable, "database unavailable", &response.ErrorBody{
			Code:   domain.CodeExternalDependencyUnavailable,
			Detail: "database: " + err.Error(),
		})
	}
	if h.cache == nil {
		checks["cache"] = "not configured"
	} else if err := h.cache.Ping(ctx); err != nil {
		checks["cache"] = "degraded"
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, checks)
}
