package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/homescout/listing-api/internal/auth"
	"github.com/homescout/listing-api/internal/config"
	"github.com/homescout/listing-api/internal/metrics"
	"github.com/homescout/listing-api/internal/middleware"
	"github.com/homescout/listing-api/internal/quota"
	"github.com/homescout/listing-api/internal/storage"
)

// Stores bundles the persistence dependencies handed to Setup.
type Stores struct {
	Users    storage.UserStore
	Listings storage.ListingStore
	History  storage.HistoryStore
}

// Setup configures all API routes
func Setup(app *fiber.App, cfg *config.Config, logger *logrus.Logger, m *middleware.Manager, stores Stores, tokens *auth.TokenService) {
	guard := quota.NewGuard(stores.History, cfg.Quota.AnonymousLimit, logger)

	authHandler := NewAuthHandler(stores.Users, tokens, logger)
	listingHandler := NewListingHandler(stores.Listings, stores.History, guard, logger)
	historyHandler := NewHistoryHandler(stores.History, logger)
	adminHandler := NewAdminHandler(stores.Users, logger)

	// Health check endpoints (no auth required)
	app.Get("/healthz", healthCheck)
	app.Get("/readyz", readinessCheck(m))
	app.Get("/version", versionHandler)

	// Metrics endpoint (no auth required)
	app.Get(cfg.Observability.MetricsPath, metrics.PrometheusHandler())

	// API routes with middleware
	api := app.Group("/api/v1")

	api.Use(metrics.HTTPMetricsMiddleware())
	api.Use(m.ErrorLogger.Handle())
	api.Use(m.RateLimit.Handle())
	api.Use(m.Idempotency.Handle())
	api.Use(m.Idempotency.ResponseCapture())

	// Auth routes
	authRoutes := api.Group("/auth")
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Get("/me", m.Auth.RequireActiveUser(), authHandler.Me)

	// Listing routes: search admits anonymous callers through the quota
	// guard, creation requires an active account
	listingRoutes := api.Group("/listings")
	listingRoutes.Get("/", m.Auth.OptionalUser(), listingHandler.Search)
	listingRoutes.Post("/", m.Auth.RequireActiveUser(), listingHandler.Create)

	// Search history routes (owner only)
	historyRoutes := api.Group("/history", m.Auth.RequireActiveUser())
	historyRoutes.Get("/", historyHandler.List)
	historyRoutes.Delete("/:id", historyHandler.DeleteOne)
	historyRoutes.Delete("/", historyHandler.DeleteAll)

	// Admin routes
	adminRoutes := api.Group("/admin", m.Auth.RequireAdmin())
	adminRoutes.Get("/users", adminHandler.ListUsers)
	adminRoutes.Delete("/users/:id", adminHandler.DeleteUser)

	// 404 handler
	app.Use(notFoundHandler)
}

// healthCheck returns the health status of the service
// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Healthy"
// @Router /healthz [get]
func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "listing-api",
	})
}

// readinessCheck checks if the service is ready to accept traffic
// @Summary Readiness check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Ready"
// @Failure 503 {object} map[string]interface{} "Not ready"
// @Router /readyz [get]
func readinessCheck(m *middleware.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		redisHealthCheck := middleware.RedisHealthCheck(m.RedisClient, m.Logger)
		if err := redisHealthCheck(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":    "not ready",
				"reason":    "redis unavailable",
				"error":     err.Error(),
				"timestamp": time.Now().UTC(),
			})
		}

		return c.JSON(fiber.Map{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   "listing-api",
		})
	}
}

// versionHandler returns version information
// @Summary Version information
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Version info"
// @Router /version [get]
func versionHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "listing-api",
		"version": getVersion(),
		"commit":  getCommit(),
		"built":   getBuildTime(),
	})
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": fiber.Map{
			"code":     "NOT_FOUND",
			"message":  "The requested resource was not found",
			"path":     c.Path(),
			"trace_id": c.Get("X-Request-ID"),
		},
	})
}

// Helper functions for version info, set during build
func getVersion() string {
	return "dev"
}

func getCommit() string {
	return "unknown"
}

func getBuildTime() string {
	return "unknown"
}
