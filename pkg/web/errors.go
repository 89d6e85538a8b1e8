package web

import (
	"errors"

	"github.com/dukex/teamflow/pkg/alerts"
	"github.com/dukex/teamflow/pkg/coordinator"
	"github.com/dukex/teamflow/pkg/models"
	"github.com/dukex/teamflow/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleCoordinatorError maps coordinator, workflow and alert errors to problems.
func handleCoordinatorError(c fiber.Ctx, err error) error {
	var (
		status int
		kind   string
		detail = err.Error()
	)

	switch {
	case errors.Is(err, models.ErrUnknownTeam):
		status, kind = fiber.StatusNotFound, "team_not_found"
	case errors.Is(err, coordinator.ErrTeamInactive):
		status, kind = fiber.StatusNotFound, "team_inactive"
	case errors.Is(err, alerts.ErrInvalidAlert):
		status, kind = fiber.StatusBadRequest, "validation_error"
	case errors.Is(err, alerts.ErrAlertAlreadyConsumed):
		status, kind = fiber.StatusConflict, "alert_already_consumed"
	case errors.Is(err, alerts.ErrAlertAnalysisFailed):
		status, kind = fiber.StatusUnprocessableEntity, "alert_analysis_failed"
	case errors.Is(err, coordinator.ErrNotInitialized), errors.Is(err, workflow.ErrNotRunning):
		status, kind = fiber.StatusConflict, "not_running"
	default:
		return internalError(c, err)
	}

	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(status).JSON(problem)
}
