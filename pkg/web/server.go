package web

import (
	"log/slog"

	"github.com/dukex/sagaflow/pkg/forge"
	"github.com/dukex/sagaflow/pkg/registry"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options selects the routes a server exposes. Nil fields leave their routes out.
type Options struct {
	Name     string
	Registry *registry.Registry
	Forge    *forge.Forge
	Metrics  *prometheus.Registry
}

func NewApp(log *slog.Logger, opts Options) *fiber.App {
	handlers := NewAPIHandlers(log, opts.Registry, opts.Forge)

	app := fiber.New(fiber.Config{AppName: opts.Name})
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString(opts.Name)
	})

	if opts.Registry != nil {
		w := app.Group("/workflows")
		w.Get("/", handlers.GetWorkflows)
		w.Get("/:name", handlers.GetWorkflow)
		w.Get("/:name/versions/:version", handlers.GetWorkflowVersion)
	}

	if opts.Forge != nil {
		app.Post("/edits", handlers.SubmitEdit)
	}

	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Metrics, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		})))
	}

	return app
}
