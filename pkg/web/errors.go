package web

import (
	"errors"
	"strings"

	"github.com/dukex/flowforge/pkg/services"
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

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps a service failure onto an RFC 7807 problem.
func handleServiceError(c fiber.Ctx, err error) error {
	var status int

	switch {
	case services.IsValidationError(err):
		status = fiber.StatusBadRequest
	case services.IsNotFoundError(err):
		status = fiber.StatusNotFound
	case services.IsConflictError(err):
		status = fiber.StatusConflict
	case services.IsMismatchError(err):
		status = fiber.StatusUnprocessableEntity
	case services.IsUnavailableError(err):
		status = fiber.StatusServiceUnavailable
	default:
		status = fiber.StatusInternalServerError
	}

	var serviceErr *services.ServiceError
	if !errors.As(err, &serviceErr) {
		return internalError(c, err)
	}

	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(strings.ToLower(serviceErr.Code)).
		WithDetail(serviceErr.Message)

	return c.Status(status).JSON(problem)
}
