package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homescout/listing-api/internal/auth"
	"github.com/homescout/listing-api/internal/config"
	"github.com/homescout/listing-api/internal/middleware"
	"github.com/homescout/listing-api/internal/models"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

func testConfig(anonymousLimit int) *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:     "test-signing-secret",
			Algorithm:  "HS256",
			TTLMinutes: 15,
		},
		Quota: config.QuotaConfig{AnonymousLimit: anonymousLimit},
		RateLimit: config.RateLimitConfig{
			Enabled: false,
		},
		Observability: config.ObservabilityConfig{MetricsPath: "/metrics"},
	}
}

// newTestApp assembles the full route tree over in-memory stores. Redis is
// absent: the rate limiter is disabled and the idempotency middleware only
// touches Redis when a request carries an Idempotency-Key.
func newTestApp(t *testing.T, cfg *config.Config, stores Stores) (*fiber.App, *auth.TokenService) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tokens, err := auth.NewTokenService(&cfg.JWT)
	require.NoError(t, err)

	resolver := auth.NewResolver(tokens, stores.Users)
	m := &middleware.Manager{
		Auth:        middleware.NewAuthMiddleware(resolver, logger),
		Idempotency: middleware.NewIdempotencyMiddleware(nil, logger),
		RateLimit:   middleware.NewRateLimitMiddleware(&cfg.RateLimit, nil, logger),
		ErrorLogger: middleware.NewErrorLoggerMiddleware(logger),
		Config:      cfg,
		Logger:      logger,
	}

	app := fiber.New()
	Setup(app, cfg, logger, m, stores, tokens)
	return app, tokens
}

func newTestStores() Stores {
	return Stores{
		Users:    newMemUserStore(),
		Listings: newMemListingStore(),
		History:  newMemHistoryStore(),
	}
}

// seedUser registers an account directly in the store and returns it with
// the plaintext password still known to the test.
func seedUser(t *testing.T, users *memUserStore, email, password string, active, admin bool) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		UserID:       uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  email,
		IsActive:     active,
		IsAdmin:      admin,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, users.Insert(context.Background(), user))
	return user
}

func issueToken(t *testing.T, tokens *auth.TokenService, email string) string {
	t.Helper()
	token, _, err := tokens.Issue(email, 0)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, app *fiber.App, method, target, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func assertErrorCode(t *testing.T, resp *http.Response, code apperrors.ErrorCode) {
	t.Helper()
	var body apperrors.ErrorResponse
	decodeJSON(t, resp, &body)
	assert.Equal(t, code, body.Error.Code)
}

func TestHealthEndpoints(t *testing.T) {
	app, _ := newTestApp(t, testConfig(20), newTestStores())

	resp := doRequest(t, app, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	decodeJSON(t, resp, &health)
	assert.Equal(t, "healthy", health["status"])

	resp = doRequest(t, app, http.MethodGet, "/version", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApp(t, testConfig(20), newTestStores())

	resp := doRequest(t, app, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	// The default registry always carries the Go runtime collectors.
	assert.Contains(t, string(body), "go_goroutines")
}

func TestUnknownRouteReturns404(t *testing.T) {
	app, _ := newTestApp(t, testConfig(20), newTestStores())

	resp := doRequest(t, app, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
