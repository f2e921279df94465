package v1

import (
	"skill-match/internal/delivery/http/middleware"
	"skill-match/internal/pkg/jwt"

	"github.com/gofiber/fiber/v3"
)

func RegisterAdmin(r fiber.Router, h Handlers) {
	if r == nil {
		return
	}

	admin := r.Group("/admin", middleware.RequireRole(jwt.RoleAdmin))
	if h.Recompute != nil {
		h.Recompute.RegisterRoutes(admin)
	}
	if h.Models != nil {
		h.Models.RegisterRoutes(admin)
	}
	if h.Ops != nil {
		h.Ops.RegisterRoutes(admin)
	}
}
