package models

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respondBody(t *testing.T, status int, err error) (int, ErrorResponse) {
	t.Helper()

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return RespondWithError(c, status, err)
	})

	resp, reqErr := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, reqErr)
	defer resp.Body.Close()

	raw, reqErr := io.ReadAll(resp.Body)
	require.NoError(t, reqErr)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestRespondWithError(t *testing.T) {
	t.Run("Internal errors hide the wrapped cause", func(t *testing.T) {
		cause := errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
		status, body := respondBody(t, fiber.StatusInternalServerError, NewInternalError(cause))

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "Internal server error", body.Error)
		assert.Equal(t, "INTERNAL_ERROR", body.Code)
		assert.Empty(t, body.Details)
	})

	t.Run("Raw errors at 500 get the generic envelope", func(t *testing.T) {
		status, body := respondBody(t, fiber.StatusInternalServerError, errors.New("redis: client is closed"))

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "Internal server error", body.Error)
		assert.Equal(t, "INTERNAL_ERROR", body.Code)
		assert.Empty(t, body.Details)
	})

	t.Run("Client errors keep their message", func(t *testing.T) {
		status, body := respondBody(t, fiber.StatusBadRequest, NewValidationError("Invalid ID"))

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Invalid ID", body.Error)
		assert.Equal(t, "VALIDATION_ERROR", body.Code)
		assert.Empty(t, body.Details)
	})
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusForError(NewValidationError("bad")))
	assert.Equal(t, http.StatusUnauthorized, StatusForError(NewUnauthorizedError("no")))
	assert.Equal(t, http.StatusForbidden, StatusForError(NewForbiddenError("no")))
	assert.Equal(t, http.StatusNotFound, StatusForError(NewNotFoundError("Confession", 1)))
	assert.Equal(t, http.StatusTooManyRequests, StatusForError(NewRateLimitedError()))
	assert.Equal(t, http.StatusServiceUnavailable, StatusForError(NewServiceUnavailableError("paused")))
	assert.Equal(t, http.StatusInternalServerError, StatusForError(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, StatusForError(NewInternalError(errors.New("boom"))))
}
