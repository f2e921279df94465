package routes

import (
	"skill-match/internal/delivery/http/handler"
	"skill-match/internal/delivery/http/middleware"
	v1 "skill-match/internal/delivery/http/routes/v1"

	"github.com/gofiber/fiber/v3"
)

type Registry struct {
	health *handler.HealthHandler
	auth   *middleware.AuthMiddleware
	v1     v1.Handlers
}

func NewRegistry(health *handler.HealthHandler, auth *middleware.AuthMiddleware, handlers v1.Handlers) *Registry {
	return &Registry{health: health, auth: auth, v1: handlers}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.registerHealth(app)
	r.registerAPI(app)
}

func (r *Registry) registerHealth(app *fiber.App) {
	if r.health == nil {
		return
	}
	r.health.RegisterRoutes(app)
}

func (r *Registry) registerAPI(app *fiber.App) {
	api := app.Group("/api")
	v1.Register(api.Group("/v1"), r.auth, r.v1)
}
