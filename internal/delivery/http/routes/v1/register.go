package v1

import (
	"skill-match/internal/delivery/http/handler"
	"skill-match/internal/delivery/http/middleware"

	"github.com/gofiber/fiber/v3"
)

type Handlers struct {
	Recommendations *handler.RecommendationHandler
	Recompute       *handler.AdminRecomputeHandler
	Models          *handler.AdminModelHandler
	Ops             *handler.AdminOpsHandler
}

// Register mounts every v1 route behind bearer authentication.
func Register(r fiber.Router, auth *middleware.AuthMiddleware, h Handlers) {
	if r == nil || auth == nil {
		return
	}

	protected := r.Group("", auth.Middleware())

	RegisterRecommendations(protected, h.Recommendations)
	RegisterAdmin(protected, h)
}
