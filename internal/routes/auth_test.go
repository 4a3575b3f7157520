package routes

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homescout/listing-api/internal/models"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

func TestRegister(t *testing.T) {
	stores := newTestStores()
	app, _ := newTestApp(t, testConfig(20), stores)

	payload := models.RegisterRequest{
		Email:       "new@homescout.io",
		Password:    "hunter22",
		DisplayName: "New User",
	}

	resp := doRequest(t, app, http.MethodPost, "/api/v1/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body models.AuthResponse
	decodeJSON(t, resp, &body)
	assert.NotEmpty(t, body.Token)
	assert.NotEmpty(t, body.UserID)
	assert.Equal(t, "new@homescout.io", body.Email)
	assert.False(t, body.IsAdmin)
	assert.Positive(t, body.ExpiresIn)

	// The issued token works immediately.
	resp = doRequest(t, app, http.MethodGet, "/api/v1/auth/me", body.Token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Registering the same email again is a conflict.
	resp = doRequest(t, app, http.MethodPost, "/api/v1/auth/register", "", payload)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assertErrorCode(t, resp, apperrors.CodeConflict)
}

func TestRegister_MissingFields(t *testing.T) {
	app, _ := newTestApp(t, testConfig(20), newTestStores())

	resp := doRequest(t, app, http.MethodPost, "/api/v1/auth/register", "",
		models.RegisterRequest{Email: "a@b.com"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assertErrorCode(t, resp, apperrors.CodeValidation)
}

func TestLogin(t *testing.T) {
	stores := newTestStores()
	users := stores.Users.(*memUserStore)
	seedUser(t, users, "a@b.com", "correct-password", true, false)

	app, _ := newTestApp(t, testConfig(20), stores)

	t.Run("valid credentials", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, "/api/v1/auth/login", "",
			models.LoginRequest{Email: "a@b.com", Password: "correct-password"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body models.AuthResponse
		decodeJSON(t, resp, &body)
		assert.NotEmpty(t, body.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, "/api/v1/auth/login", "",
			models.LoginRequest{Email: "a@b.com", Password: "wrong"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assertErrorCode(t, resp, apperrors.CodeUnauthenticated)
	})

	t.Run("unknown email gets the same rejection", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, "/api/v1/auth/login", "",
			models.LoginRequest{Email: "ghost@b.com", Password: "whatever"})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assertErrorCode(t, resp, apperrors.CodeUnauthenticated)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodPost, "/api/v1/auth/login", "",
			models.LoginRequest{Email: "a@b.com"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assertErrorCode(t, resp, apperrors.CodeValidation)
	})
}

func TestMe(t *testing.T) {
	stores := newTestStores()
	users := stores.Users.(*memUserStore)
	user := seedUser(t, users, "a@b.com", "pw123456", true, false)
	inactive := seedUser(t, users, "off@b.com", "pw123456", false, false)

	app, tokens := newTestApp(t, testConfig(20), stores)

	t.Run("authenticated", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/v1/auth/me", issueToken(t, tokens, user.Email), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body models.User
		decodeJSON(t, resp, &body)
		assert.Equal(t, user.UserID, body.UserID)
		assert.Equal(t, user.Email, body.Email)
	})

	t.Run("no token", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/v1/auth/me", "", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assertErrorCode(t, resp, apperrors.CodeUnauthenticated)
	})

	t.Run("inactive account", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/v1/auth/me", issueToken(t, tokens, inactive.Email), nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assertErrorCode(t, resp, apperrors.CodeInactiveUser)
	})
}
