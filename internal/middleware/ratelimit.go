// Package middleware provides rate limiting, logging, metrics, and tracing middleware.
package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"whisperwall/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// Result is the outcome of a single limiter check. Remaining is the quota
// left in the trailing window, clamped at zero.
type Result struct {
	Allowed   bool
	Remaining int
}

// SlidingWindow is a Redis-backed sliding-window rate limiter. Each scope key
// maps to a sorted set of request timestamps; a check prunes entries older
// than the window, records the current attempt, and counts what remains.
// Checks across concurrent instances are serialized by Redis itself.
type SlidingWindow struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewSlidingWindow returns a limiter allowing `limit` requests per `window` per scope key.
func NewSlidingWindow(rdb *redis.Client, limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		rdb:    rdb,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Limit records one attempt for the scope key and evaluates the trailing
// window. The decision is terminal for the request; there is no backoff.
func (l *SlidingWindow) Limit(ctx context.Context, scope string) (Result, error) {
	if l.rdb == nil {
		return Result{}, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s", scope)
	now := l.now()
	windowStart := now.Add(-l.window).UnixMilli()

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: uuid.NewString(),
	})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	count := int(card.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: count <= l.limit, Remaining: remaining}, nil
}

// ClientIP extracts the real client IP, preferring the CDN-provided header.
func ClientIP(c *fiber.Ctx) string {
	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}
	return c.IP()
}

// HashClientID hashes a client identifier so raw IPs are never stored.
func HashClientID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// RateLimit returns a Fiber middleware enforcing `limit` requests per `window`,
// keyed by the hashed client IP under the given resource name. Each resource
// gets its own independent quota. It defaults to FailOpen policy.
// Rate limiting is disabled when APP_ENV is "test", "development" or "stress"
// so dev and load test workflows are not throttled.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, resource string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, resource)
}

// RateLimitWithPolicy returns a rate limit middleware with a specific failure policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, resource string) fiber.Handler {
	limiter := NewSlidingWindow(rdb, limit, window)

	return func(c *fiber.Ctx) error {
		env := os.Getenv("APP_ENV")
		if env == "" {
			env = "development"
		}
		switch env {
		case "test", "development", "stress":
			return c.Next()
		}

		scope := fmt.Sprintf("%s:%s", resource, HashClientID(ClientIP(c)))

		res, err := limiter.Limit(c.Context(), scope)
		if err != nil {
			if policy == FailClosed {
				slog.Warn("rate limit fail-closed", "path", c.Path(), "resource", resource, "err", err)
				return models.RespondWithError(c, fiber.StatusServiceUnavailable,
					models.NewServiceUnavailableError("rate limit unavailable"))
			}
			// Default FailOpen
			return c.Next()
		}

		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			RateLimitRejections.WithLabelValues(resource).Inc()
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				models.NewRateLimitedError())
		}
		return c.Next()
	}
}
