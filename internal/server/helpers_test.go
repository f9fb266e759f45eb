package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"whisperwall/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key-for-handler-tests-only"
const testModeratorEmail = "moderator@example.com"

// stubVerifier is a canned CAPTCHA verifier for handler tests.
type stubVerifier struct {
	ok  bool
	err error
}

func (v *stubVerifier) Verify(ctx context.Context, token string) (bool, error) {
	return v.ok, v.err
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		JWTSecret:      testJWTSecret,
		ModeratorEmail: testModeratorEmail,
		Env:            "test",
	}
}

// newTestServer wires a Server against miniredis with routes mounted on a
// bare Fiber app. APP_ENV=test disables the sliding-window limiters.
func newTestServer(t *testing.T, cfg *config.Config) (*Server, *fiber.App, *redis.Client) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	if cfg == nil {
		cfg = testConfig()
	}

	s := NewServerWithDeps(cfg, rdb, &stubVerifier{ok: true})
	app := fiber.New()
	s.SetupRoutes(app)
	return s, app, rdb
}

// mintModeratorToken signs a moderator JWT for the given email.
func mintModeratorToken(t *testing.T, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

// doJSON issues a request with an optional JSON body and bearer token,
// decoding the response body into a generic map.
func doJSON(t *testing.T, app *fiber.App, method, path string, body any, bearer string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}
