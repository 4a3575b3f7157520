package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/homescout/listing-api/internal/auth"
	"github.com/homescout/listing-api/internal/metrics"
	"github.com/homescout/listing-api/internal/models"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

const localsUserKey = "current_user"

// AuthMiddleware binds the identity resolver to routes. Each handler
// resolves the bearer credential (if any) and stores the user in locals.
type AuthMiddleware struct {
	resolver *auth.Resolver
	logger   *logrus.Logger
}

// NewAuthMiddleware creates the auth middleware over a resolver.
func NewAuthMiddleware(resolver *auth.Resolver, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver, logger: logger}
}

// RequireActiveUser admits only requests carrying a valid token for an
// active account.
func (a *AuthMiddleware) RequireActiveUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c)
		if err != nil {
			metrics.RecordAuthResolution("active", "denied")
			return WriteError(c, err)
		}

		user, err := a.resolver.RequireActiveUser(c.Context(), raw)
		if err != nil {
			metrics.RecordAuthResolution("active", "denied")
			a.logger.WithError(err).WithField("path", c.Path()).Debug("Active user resolution failed")
			return WriteError(c, err)
		}

		metrics.RecordAuthResolution("active", "success")
		c.Locals(localsUserKey, user)
		return c.Next()
	}
}

// RequireAdmin admits only active admin accounts.
func (a *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c)
		if err != nil {
			metrics.RecordAuthResolution("admin", "denied")
			return WriteError(c, err)
		}

		user, err := a.resolver.RequireAdmin(c.Context(), raw)
		if err != nil {
			metrics.RecordAuthResolution("admin", "denied")
			a.logger.WithError(err).WithField("path", c.Path()).Debug("Admin resolution failed")
			return WriteError(c, err)
		}

		metrics.RecordAuthResolution("admin", "success")
		c.Locals(localsUserKey, user)
		return c.Next()
	}
}

// OptionalUser resolves credentials when present. Requests with no
// Authorization header pass through anonymous; a present but invalid
// token is rejected, never downgraded to anonymous.
func (a *AuthMiddleware) OptionalUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c)
		if err != nil {
			metrics.RecordAuthResolution("optional", "denied")
			return WriteError(c, err)
		}

		user, err := a.resolver.OptionalUser(c.Context(), raw)
		if err != nil {
			metrics.RecordAuthResolution("optional", "denied")
			a.logger.WithError(err).WithField("path", c.Path()).Debug("Optional user resolution failed")
			return WriteError(c, err)
		}

		metrics.RecordAuthResolution("optional", "success")
		if user != nil {
			c.Locals(localsUserKey, user)
		}
		return c.Next()
	}
}

// bearerToken extracts the bearer credential from the Authorization
// header. A missing header yields ("", nil); a malformed one is an
// UNAUTHENTICATED error, since bad credentials are never ignored.
func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get("Authorization")
	if header == "" {
		return "", nil
	}

	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", apperrors.NewAppError(apperrors.CodeUnauthenticated, "Authorization header must be a Bearer token", nil)
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", apperrors.NewAppError(apperrors.CodeUnauthenticated, "bearer token is empty", nil)
	}
	return token, nil
}

// CurrentUser returns the resolved user from locals, or nil for
// anonymous requests.
func CurrentUser(c *fiber.Ctx) *models.User {
	if user, ok := c.Locals(localsUserKey).(*models.User); ok {
		return user
	}
	return nil
}

// GetUserID returns the resolved user's id, or "" for anonymous requests.
func GetUserID(c *fiber.Ctx) string {
	if user := CurrentUser(c); user != nil {
		return user.UserID
	}
	return ""
}

// ClientIP extracts the real client IP, preferring load balancer headers.
func ClientIP(c *fiber.Ctx) string {
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	return c.IP()
}

// WriteError renders err as the standardized error response. The AppError
// is found anywhere in the cause chain, so wrapped errors keep their code.
func WriteError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.NewAppError(apperrors.CodeInternalError, "internal server error", err)
	}
	return c.Status(appErr.HTTPStatus()).JSON(appErr.ToErrorResponse(c.Get("X-Request-ID")))
}
