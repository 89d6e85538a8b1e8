// Package web provides the HTTP query and control API over the coordinator.
package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/teamflow/pkg/coordinator"
	"github.com/dukex/teamflow/pkg/journal"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/jonboulle/clockwork"
)

type APIHandlers struct {
	coordinator *coordinator.Coordinator
	journal     journal.Journal
	validator   *validator.Validate
	clock       clockwork.Clock
	logger      *slog.Logger
}

func NewAPIHandlers(
	coord *coordinator.Coordinator,
	j journal.Journal,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	if j == nil {
		j = journal.NewMemory(0)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &APIHandlers{
		coordinator: coord,
		journal:     j,
		validator:   validator,
		clock:       clockwork.NewRealClock(),
		logger:      logger.With("module", "web"),
	}
}

func (h *APIHandlers) GetStatus(c fiber.Ctx) error {
	return c.JSON(h.coordinator.Status())
}

func (h *APIHandlers) GetDashboard(c fiber.Ctx) error {
	return c.JSON(h.coordinator.Dashboard())
}

func (h *APIHandlers) GetTeams(c fiber.Ctx) error {
	return c.JSON(h.coordinator.Status().Teams)
}

func (h *APIHandlers) GetTeam(c fiber.Ctx) error {
	name := c.Params("name")

	details, ok := h.coordinator.TeamDetails(name)
	if !ok {
		return notFound(c, "Team "+name+" not found")
	}

	return c.JSON(details)
}

func (h *APIHandlers) GetRelatedTeams(c fiber.Ctx) error {
	name := c.Params("name")

	if _, ok := h.coordinator.TeamDetails(name); !ok {
		return notFound(c, "Team "+name+" not found")
	}

	return c.JSON(RelatedResponse{Team: name, Related: h.coordinator.RelatedTeams(name)})
}

func (h *APIHandlers) PostAlert(c fiber.Ctx) error {
	var req AlertRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	dispatch, err := h.coordinator.HandleAlert(c.Context(), c.Params("name"), req.ToAlert(h.clock.Now()))
	if err != nil {
		return handleCoordinatorError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(dispatch)
}

func (h *APIHandlers) RunOptimizationCycle(c fiber.Ctx) error {
	report, err := h.coordinator.RunCrossTeamOptimizationCycle(c.Context())
	if err != nil {
		return handleCoordinatorError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) RunReportCycle(c fiber.Ctx) error {
	report, err := h.coordinator.RunReportCycle(c.Context())
	if err != nil {
		return handleCoordinatorError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) GetEvents(c fiber.Ctx) error {
	limit := journal.DefaultRecentLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}

		limit = parsed
	}

	entries, err := h.journal.Recent(c.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(c.Context(), "Failed to read event journal", "error", err)

		return internalError(c, err)
	}

	if entries == nil {
		entries = []journal.Entry{}
	}

	return c.JSON(EventsResponse{Events: entries, Limit: limit})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	journalCheck := "ok"
	journalOk := true

	if err := h.journal.HealthCheck(c.Context()); err != nil {
		journalCheck = err.Error()
		journalOk = false
	}

	running := h.coordinator.Status().Running

	coordinatorCheck := "running"
	if !running {
		coordinatorCheck = "stopped"
	}

	status := "unhealthy"
	message := "teamflow is unhealthy"
	httpStatus := http.StatusServiceUnavailable

	if journalOk && running {
		status = "healthy"
		message = "teamflow is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"coordinator": coordinatorCheck,
			"journal":     journalCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
