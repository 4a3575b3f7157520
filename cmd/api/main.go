package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/homescout/listing-api/internal/auth"
	"github.com/homescout/listing-api/internal/config"
	"github.com/homescout/listing-api/internal/logging"
	"github.com/homescout/listing-api/internal/metrics"
	"github.com/homescout/listing-api/internal/middleware"
	"github.com/homescout/listing-api/internal/routes"
	"github.com/homescout/listing-api/internal/storage"
)

// @title Listing API
// @version 1.0
// @description Real-estate listing search service with tiered authentication and anonymous usage quotas

// @host localhost:8000
// @BasePath /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token.

func main() {
	// Load configuration. An empty signing secret or algorithm fails here,
	// before any request is served.
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg)

	if err := metrics.Init(); err != nil {
		logger.WithError(err).Fatal("Failed to initialize metrics")
	}

	tracingShutdown, err := middleware.InitTracing(&cfg.Observability, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to setup tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingShutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown tracing")
		}
	}()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tokens, err := auth.NewTokenService(&cfg.JWT)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize token service")
	}

	dynamoClient, err := storage.NewDynamoClient(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize DynamoDB client")
	}

	stores := routes.Stores{
		Users:    storage.NewDynamoUserStore(dynamoClient, cfg.DynamoDB.UsersTableName, logger),
		Listings: storage.NewDynamoListingStore(dynamoClient, cfg.DynamoDB.ListingsTableName, logger),
		History:  storage.NewDynamoHistoryStore(dynamoClient, cfg.DynamoDB.HistoryTableName, logger),
	}

	resolver := auth.NewResolver(tokens, stores.Users)

	middlewareManager, err := middleware.NewManager(cfg, resolver, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize middleware manager")
	}
	defer middlewareManager.Close()

	app := fiber.New(fiber.Config{
		AppName:      "Listing API",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			logger.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
				"status": code,
			}).Error("Request error")

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":     "INTERNAL_ERROR",
					"message":  "Internal server error",
					"trace_id": c.Get("X-Request-ID"),
				},
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With,Idempotency-Key,X-Trace-Id",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	app.Use(otelfiber.Middleware())

	// pprof for memory profiling (accessible at /debug/pprof/)
	app.Use(pprof.New())

	routes.Setup(app, cfg, logger, middlewareManager, stores, tokens)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info("Gracefully shutting down...")
		if err := app.Shutdown(); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
	}()

	logger.WithField("port", cfg.Server.Port).Info("Starting Listing API server")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
