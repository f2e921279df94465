package v1

import (
	"skill-match/internal/delivery/http/handler"

	"github.com/gofiber/fiber/v3"
)

func RegisterRecommendations(r fiber.Router, recommendationHandler *handler.RecommendationHandler) {
	if r == nil {
		return
	}
	if recommendationHandler == nil {
		return
	}

	recommendationHandler.RegisterRoutes(r)
}
