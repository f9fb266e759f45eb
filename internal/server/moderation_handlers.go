package server

import (
	"github.com/gofiber/fiber/v2"

	"whisperwall/internal/models"
)

// EditConfessionRequest is the moderator text-edit payload.
type EditConfessionRequest struct {
	Text string `json:"text"`
}

// BatchDeleteRequest lists the public confessions to remove in one call.
type BatchDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// EditConfession replaces a public confession's text. Color, date, and
// ordering position are immutable.
func (s *Server) EditConfession(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	var req EditConfessionRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	confession, err := s.confessionService.Edit(c.Context(), id, req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"confession": confession})
}

// DeleteConfession removes a single public confession.
func (s *Server) DeleteConfession(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	if err := s.confessionService.ModeratorDelete(c.Context(), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Confession deleted"})
}

// BatchDeleteConfessions removes every listed public confession and reports
// how many were actually removed.
func (s *Server) BatchDeleteConfessions(c *fiber.Ctx) error {
	var req BatchDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	count, err := s.confessionService.BatchDelete(c.Context(), req.IDs)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"deletedCount": count})
}

// GetPendingConfessions lists the moderation queue, newest first.
func (s *Server) GetPendingConfessions(c *fiber.Ctx) error {
	confessions, err := s.confessionService.Pending(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"confessions": confessions})
}

// ApproveConfession publishes a pending confession.
func (s *Server) ApproveConfession(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	confession, err := s.confessionService.Approve(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"confession": confession})
}

// RejectConfession discards a pending confession permanently.
func (s *Server) RejectConfession(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	if err := s.confessionService.Reject(c.Context(), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Confession rejected"})
}
