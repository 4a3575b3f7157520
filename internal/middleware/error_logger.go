package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ErrorLoggerMiddleware struct {
	logger *logrus.Logger
}

func NewErrorLoggerMiddleware(logger *logrus.Logger) *ErrorLoggerMiddleware {
	return &ErrorLoggerMiddleware{
		logger: logger,
	}
}

// Handle logs 4xx and 5xx responses with detailed context
func (e *ErrorLoggerMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()

		err := c.Next()

		statusCode := c.Response().StatusCode()
		if statusCode < 400 {
			return err
		}

		duration := time.Since(startTime)

		logFields := logrus.Fields{
			"status_code": statusCode,
			"method":      c.Method(),
			"path":        c.Path(),
			"ip":          ClientIP(c),
			"user_agent":  c.Get("User-Agent"),
			"request_id":  c.Get("X-Request-ID"),
			"duration_ms": duration.Milliseconds(),
		}

		if userID := GetUserID(c); userID != "" {
			logFields["user_id"] = userID
		}

		if len(c.Request().URI().QueryString()) > 0 {
			logFields["query"] = string(c.Request().URI().QueryString())
		}

		// Truncated response body for diagnosis; request bodies stay out of
		// the logs, they carry passwords on the auth routes.
		responseBody := string(c.Response().Body())
		if len(responseBody) > 500 {
			responseBody = responseBody[:500] + "...(truncated)"
		}
		if len(responseBody) > 0 {
			logFields["response_body"] = responseBody
		}

		logEntry := e.logger.WithFields(logFields)

		if statusCode >= 500 {
			if err != nil {
				logEntry = logEntry.WithError(err)
			}
			logEntry.Error("Server error response")
		} else {
			logEntry.Warn("Client error response")
		}

		return err
	}
}
