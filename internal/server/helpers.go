package server

import (
	"errors"

	"whisperwall/internal/middleware"
	"whisperwall/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseID extracts the id route parameter as a positive int64.
func parseID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid ID")
	}
	return int64(id), nil
}

// respondServiceError maps a service-layer error onto the wire. Upstream
// failures are logged here and surface as opaque 500s.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := models.StatusForError(err)
	if status == fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}
