// Package server contains the HTTP handlers for the confession board API.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"whisperwall/internal/cache"
	"whisperwall/internal/captcha"
	"whisperwall/internal/config"
	"whisperwall/internal/middleware"
	"whisperwall/internal/repository"
	"whisperwall/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

const (
	submitQuota  = 10
	deleteQuota  = 10
	quotaWindow  = time.Minute
	globalQuota  = 100
	globalWindow = time.Minute
)

// Server holds all dependencies and provides handlers
type Server struct {
	config            *config.Config
	redis             *redis.Client
	app               *fiber.App
	promMiddleware    *fiberprometheus.FiberPrometheus
	confessionRepo    repository.ConfessionRepository
	tokenRepo         repository.TokenRepository
	settingsStore     repository.SettingsStore
	visitorRepo       repository.VisitorRepository
	tokenService      *service.TokenService
	confessionService *service.ConfessionService
	captchaVerifier   captcha.Verifier
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	if err := cache.InitRedis(cfg.RedisURL); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	verifier := captcha.NewHTTPVerifier(cfg.CaptchaSiteKey, cfg.CaptchaSecretKey, cfg.CaptchaVerifyURL)
	return NewServerWithDeps(cfg, cache.GetClient(), verifier), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes Redis itself.
func NewServerWithDeps(cfg *config.Config, redisClient *redis.Client, verifier captcha.Verifier) *Server {
	confessionRepo := repository.NewConfessionRepository(redisClient)
	tokenRepo := repository.NewTokenRepository(redisClient)
	settingsStore := repository.NewSettingsStore(redisClient)
	visitorRepo := repository.NewVisitorRepository(redisClient)

	prom := middleware.InitMetrics("whisperwall-api")

	server := &Server{
		config:          cfg,
		redis:           redisClient,
		promMiddleware:  prom,
		confessionRepo:  confessionRepo,
		tokenRepo:       tokenRepo,
		settingsStore:   settingsStore,
		visitorRepo:     visitorRepo,
		captchaVerifier: verifier,
	}
	server.tokenService = service.NewTokenService(tokenRepo)
	server.confessionService = service.NewConfessionService(confessionRepo, server.tokenService, settingsStore)

	return server
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// Distributed tracing
	app.Use(middleware.TracingMiddleware())

	// CORS middleware should run before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on error
	// responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400, // 24 hours
	}))

	// Global rate limiting per IP
	app.Use(limiter.New(limiter.Config{
		Max:        globalQuota,
		Expiration: globalWindow,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Public confession routes
	confessions := api.Group("/confessions")
	confessions.Get("/", s.GetConfessions)
	confessions.Post("/", middleware.RateLimit(
		s.redis, submitQuota, quotaWindow, "confess"), s.CreateConfession)
	// Token-holder self delete gets its own quota so deletion abuse cannot
	// starve submissions. Must be defined before the generic /:id routes.
	confessions.Post("/delete", middleware.RateLimit(
		s.redis, deleteQuota, quotaWindow, "delete"), s.SelfDeleteConfession)

	// Moderator routes
	confessions.Get("/pending", s.ModeratorRequired(), s.GetPendingConfessions)
	confessions.Post("/pending/:id/approve", s.ModeratorRequired(), s.ApproveConfession)
	confessions.Post("/pending/:id/reject", s.ModeratorRequired(), s.RejectConfession)
	confessions.Post("/batch-delete", s.ModeratorRequired(), s.BatchDeleteConfessions)
	confessions.Patch("/:id", s.ModeratorRequired(), s.EditConfession)
	confessions.Delete("/:id", s.ModeratorRequired(), s.DeleteConfession)

	// Site settings
	api.Get("/settings", s.GetSettings)
	api.Post("/settings", s.ModeratorRequired(), s.UpdateSettings)

	// Stats and unique-visitor counter
	api.Get("/stats", s.GetStats)
	api.Get("/views", s.GetViews)
	api.Post("/views", s.RecordView)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is the sole store,
// so an unreachable Redis means the service cannot do anything useful.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"redis": redisStatus,
		},
		"time": time.Now(),
	})
}

// Start initializes the Fiber app and begins serving.
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "Whisperwall API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			return err
		}
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
