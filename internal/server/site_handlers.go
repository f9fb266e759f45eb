package server

import (
	"github.com/gofiber/fiber/v2"

	"whisperwall/internal/middleware"
	"whisperwall/internal/models"
)

// GetSettings returns the current site settings. Settings are read fresh on
// every call, never cached in process.
func (s *Server) GetSettings(c *fiber.Ctx) error {
	settings, err := s.settingsStore.Get(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(settings)
}

// UpdateSettings replaces the site settings wholesale.
func (s *Server) UpdateSettings(c *fiber.Ctx) error {
	var settings models.Settings
	if err := c.BodyParser(&settings); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.settingsStore.Set(c.Context(), settings); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(settings)
}

// GetStats returns the public record count estimate.
func (s *Server) GetStats(c *fiber.Ctx) error {
	stats, err := s.confessionService.Stats(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(stats)
}

// RecordView marks the caller as a seen visitor. Recording is idempotent per
// hashed client IP; only the hash ever reaches the store.
func (s *Server) RecordView(c *fiber.Ctx) error {
	hashed := middleware.HashClientID(middleware.ClientIP(c))

	if _, err := s.visitorRepo.Record(c.Context(), hashed); err != nil {
		return respondServiceError(c, err)
	}

	views, err := s.visitorRepo.Count(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"views": views})
}

// GetViews returns the unique-visitor count.
func (s *Server) GetViews(c *fiber.Ctx) error {
	views, err := s.visitorRepo.Count(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"views": views})
}
