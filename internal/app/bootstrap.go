package app

import (
	"fmt"
	"strings"

	"skill-match/internal/config"
	"skill-match/internal/delivery/http/handler"
	"skill-match/internal/delivery/http/middleware"
	"skill-match/internal/delivery/http/routes"
	v1 "skill-match/internal/delivery/http/routes/v1"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

func New(c *Container) *App {
	f := fiber.New(fiber.Config{AppName: c.Config.App.AppName})

	registerGlobalMiddleware(f, c.Log)
	registerRoutes(f, c)

	return &App{Fiber: f, Container: c}
}

func Bootstrap(cfg config.Config, log *zap.Logger) (*App, func() error, error) {
	c, err := NewContainer(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return New(c), c.Close, nil
}

func registerGlobalMiddleware(app *fiber.App, log *zap.Logger) {
	if app == nil {
		return
	}

	app.Use(middleware.NewAccessLogMiddleware(log).Middleware())
	app.Use(middleware.NewErrorMiddleware(log).Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil {
		return
	}

	registry := routes.NewRegistry(
		handler.NewHealthHandler(c.DB, c.Cache),
		middleware.NewAuthMiddleware(c.JWT),
		v1.Handlers{
			Recommendations: handler.NewRecommendationHandler(c.Recommendations),
			Recompute:       handler.NewAdminRecomputeHandler(c.Recommendations, c.Scheduler),
			Models:          handler.NewAdminModelHandler(c.Clusters, c.Weights, c.Vocabulary),
			Ops:             handler.NewAdminOpsHandler(c.Invalidator, c.Scheduler),
		},
	)
	registry.Register(app)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
