package web

import (
	"log/slog"
	"strconv"

	"github.com/dukex/teamflow/pkg/coordinator"
	"github.com/dukex/teamflow/pkg/journal"
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
	coordinator *coordinator.Coordinator
	journal     journal.Journal
	gatherer    prometheus.Gatherer
	validate    *validator.Validate
}

// NewAPI serves coord, the event journal and the metrics of gatherer. A nil
// gatherer falls back to the default Prometheus registry.
func NewAPI(
	logger *slog.Logger,
	coord *coordinator.Coordinator,
	j journal.Journal,
	gatherer prometheus.Gatherer,
) *API {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &API{
		logger:      logger,
		coordinator: coord,
		journal:     j,
		gatherer:    gatherer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := NewAPIHandlers(a.coordinator, a.journal, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("teamflow")
	})

	app.Get("/status", handlers.GetStatus)
	app.Get("/dashboard", handlers.GetDashboard)
	app.Get("/health", handlers.HealthCheck)
	app.Get("/events", handlers.GetEvents)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))

	t := app.Group("/teams")
	t.Get("/", handlers.GetTeams)
	t.Get("/:name", handlers.GetTeam)
	t.Get("/:name/related", handlers.GetRelatedTeams)
	t.Post("/:name/alerts", handlers.PostAlert)

	cycles := app.Group("/cycles")
	cycles.Post("/optimization", handlers.RunOptimizationCycle)
	cycles.Post("/report", handlers.RunReportCycle)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
