// Package main provides the Flowcanvas API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/flowcanvas/pkg/logstream"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/registry"
	"github.com/dukex/flowcanvas/pkg/runner"
	"github.com/dukex/flowcanvas/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	runner      *runner.Runner
	scheduler   web.Scheduler
	logs        logstream.Store
	generator   web.Generator
	validate    *validator.Validate
	app         *fiber.App
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	runner *runner.Runner,
	scheduler web.Scheduler,
	logs logstream.Store,
	generator web.Generator,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		runner:      runner,
		scheduler:   scheduler,
		logs:        logs,
		generator:   generator,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.logger, a.persistence, a.runner, a.scheduler, a.logs, a.generator, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			return a.persistence.HealthCheck(c.Context()) == nil
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowcanvas API")
	})

	w := app.Group("/workflows")
	w.Post("/save", handlers.SaveWorkflow)
	w.Post("/run", handlers.RunWorkflow)
	w.Post("/schedule", handlers.ScheduleWorkflow)
	w.Get("/user/:username", handlers.UserWorkflows)
	w.Delete("/delete/:id", handlers.DeleteWorkflow)
	w.Delete("/clear_all", handlers.ClearAll)
	w.Get("/ws/workflow_log/:id", handlers.WorkflowLog)

	w.Get("/tools", handlers.Tools)
	w.Post("/tools/openai/generate", handlers.Generate)
	w.Post("/tools/:service", handlers.ToolStub)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	a.app = a.App()

	err := a.app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})

	return err
}

func (a *API) Shutdown(ctx context.Context) error {
	if a.app == nil {
		return nil
	}

	return a.app.ShutdownWithContext(ctx)
}
