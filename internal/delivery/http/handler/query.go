package handler

import (
	"strconv"
	"strings"

	"skill-match/internal/delivery/http/middleware"
	"skill-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

func parseQueryInt(c fiber.Ctx, key string) (int, error) {
	s := strings.TrimSpace(c.Query(key))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, middleware.BadRequest("Invalid "+key, err)
	}
	return v, nil
}

func parseQueryFloat(c fiber.Ctx, key string) (*float64, error) {
	s := strings.TrimSpace(c.Query(key))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 100 {
		return nil, middleware.BadRequest("Invalid "+key, err)
	}
	return &v, nil
}

func parseQueryBool(c fiber.Ctx, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && v
}

// listParams reads limit and min_score; zero values fall back to the engine defaults.
func listParams(c fiber.Ctx) (usecase.Params, error) {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return usecase.Params{}, err
	}
	minScore, err := parseQueryFloat(c, "min_score")
	if err != nil {
		return usecase.Params{}, err
	}
	return usecase.Params{Limit: limit, MinScore: minScore}, nil
}

func pathID(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, middleware.BadRequest("Invalid "+name, err)
	}
	return id, nil
}

func currentUser(c fiber.Ctx) (uuid.UUID, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return uuid.Nil, middleware.NewAppError(fiber.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
	}
	return id, nil
}
