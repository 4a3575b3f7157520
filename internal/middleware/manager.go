package middleware

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/homescout/listing-api/internal/auth"
	"github.com/homescout/listing-api/internal/config"
)

// Manager holds all middleware instances
type Manager struct {
	Auth        *AuthMiddleware
	Idempotency *IdempotencyMiddleware
	RateLimit   *RateLimitMiddleware
	ErrorLogger *ErrorLoggerMiddleware
	RedisClient *redis.Client
	Config      *config.Config
	Logger      *logrus.Logger
}

// NewManager creates a new middleware manager with all middleware initialized
func NewManager(cfg *config.Config, resolver *auth.Resolver, logger *logrus.Logger) (*Manager, error) {
	redisClient, err := NewRedisClient(&cfg.Redis, &cfg.AWS, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client: %w", err)
	}

	return &Manager{
		Auth:        NewAuthMiddleware(resolver, logger),
		Idempotency: NewIdempotencyMiddleware(redisClient, logger),
		RateLimit:   NewRateLimitMiddleware(&cfg.RateLimit, redisClient, logger),
		ErrorLogger: NewErrorLoggerMiddleware(logger),
		RedisClient: redisClient,
		Config:      cfg,
		Logger:      logger,
	}, nil
}

// Close closes all middleware resources
func (m *Manager) Close() error {
	if m.RedisClient != nil {
		return m.RedisClient.Close()
	}
	return nil
}
