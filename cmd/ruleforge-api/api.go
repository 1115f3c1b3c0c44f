package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/ruleforge/pkg/approval"
	"github.com/dukex/ruleforge/pkg/automation"
	"github.com/dukex/ruleforge/pkg/eventbus"
	"github.com/dukex/ruleforge/pkg/metrics"
	"github.com/dukex/ruleforge/pkg/persistence"
	"github.com/dukex/ruleforge/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      *automation.Engine
	eventBus    eventbus.EventBus
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	engine *automation.Engine,
	eventBus eventbus.EventBus,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		engine:      engine,
		eventBus:    eventBus,
		metrics:     m,
		gatherer:    gatherer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	gate := approval.NewGate(a.logger, a.persistence.ApprovalRepository(), a.engine.Tracer())

	handlers := web.NewAPIHandlers(a.logger, a.engine, gate, a.eventBus, a.persistence, a.metrics, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("RuleForge API")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))

	handlers.Mount(app)

	return app
}

// Start serves until ctx is cancelled, then shuts the server down.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listen(":" + strconv.Itoa(port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.Info("Shutting down API server")

		return app.Shutdown()
	}
}
