package server

import (
	"github.com/gofiber/fiber/v2"

	"whisperwall/internal/middleware"
	"whisperwall/internal/models"
	"whisperwall/internal/repository"
)

// CreateConfessionRequest is the submission payload.
type CreateConfessionRequest struct {
	Text         string `json:"text"`
	Color        string `json:"color"`
	CaptchaToken string `json:"captchaToken"`
}

// SelfDeleteRequest carries the possession token for author-initiated
// deletion. No confession ID is accepted; the token alone identifies the
// record.
type SelfDeleteRequest struct {
	Token string `json:"token"`
}

// GetConfessions returns one page of public confessions, newest first.
// Query params: cursor (omit or "+inf" for the first page, otherwise the
// nextCursor from the previous page) and limit.
func (s *Server) GetConfessions(c *fiber.Ctx) error {
	cursor := c.Query("cursor", repository.CursorUnbounded)
	limit := c.QueryInt("limit", repository.DefaultPageSize)

	page, err := s.confessionService.List(c.Context(), cursor, limit)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(page)
}

// CreateConfession submits a new confession. The response carries the delete
// token exactly once; it cannot be recovered afterwards.
func (s *Server) CreateConfession(c *fiber.Ctx) error {
	var req CreateConfessionRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.verifyCaptcha(c, req.CaptchaToken); err != nil {
		return respondServiceError(c, err)
	}

	result, err := s.confessionService.Submit(c.Context(), req.Text, req.Color)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"confession":  result.Confession,
		"deleteToken": result.DeleteToken,
		"pending":     result.Pending,
	})
}

// SelfDeleteConfession removes the caller's own confession, authorized by the
// possession token issued at submission time.
func (s *Server) SelfDeleteConfession(c *fiber.Ctx) error {
	var req SelfDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.confessionService.SelfDelete(c.Context(), req.Token); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Confession deleted"})
}

// verifyCaptcha checks the submitted CAPTCHA token before anything touches
// the store. An unconfigured secret disables verification; config validation
// already warns about that in production.
func (s *Server) verifyCaptcha(c *fiber.Ctx, token string) error {
	if s.config.CaptchaSecretKey == "" {
		return nil
	}

	if token == "" {
		return models.NewValidationError("CAPTCHA token is required")
	}

	// Provider unreachable counts as failed verification. Nothing is written
	// to the store until the challenge clears.
	ok, err := s.captchaVerifier.Verify(c.Context(), token)
	if err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "captcha verification error", "error", err)
		return models.NewValidationError("CAPTCHA verification failed")
	}
	if !ok {
		return models.NewValidationError("CAPTCHA verification failed")
	}
	return nil
}
