package routes

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homescout/listing-api/internal/models"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

func TestAdminListUsers(t *testing.T) {
	stores := newTestStores()
	users := stores.Users.(*memUserStore)
	admin := seedUser(t, users, "admin@b.com", "pw123456", true, true)
	seedUser(t, users, "a@b.com", "pw123456", true, false)

	app, tokens := newTestApp(t, testConfig(20), stores)

	resp := doRequest(t, app, http.MethodGet, "/api/v1/admin/users", issueToken(t, tokens, admin.Email), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed []models.User
	decodeJSON(t, resp, &listed)
	assert.Len(t, listed, 2)
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	stores := newTestStores()
	users := stores.Users.(*memUserStore)
	regular := seedUser(t, users, "a@b.com", "pw123456", true, false)

	app, tokens := newTestApp(t, testConfig(20), stores)
	token := issueToken(t, tokens, regular.Email)

	resp := doRequest(t, app, http.MethodGet, "/api/v1/admin/users", token, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assertErrorCode(t, resp, apperrors.CodeForbidden)

	resp = doRequest(t, app, http.MethodDelete, "/api/v1/admin/users/some-id", token, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/api/v1/admin/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminDeleteUser(t *testing.T) {
	stores := newTestStores()
	users := stores.Users.(*memUserStore)
	admin := seedUser(t, users, "admin@b.com", "pw123456", true, true)
	target := seedUser(t, users, "a@b.com", "pw123456", true, false)

	app, tokens := newTestApp(t, testConfig(20), stores)
	token := issueToken(t, tokens, admin.Email)

	resp := doRequest(t, app, http.MethodDelete, "/api/v1/admin/users/"+target.UserID, token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The account is gone; a repeat delete misses.
	resp = doRequest(t, app, http.MethodDelete, "/api/v1/admin/users/"+target.UserID, token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assertErrorCode(t, resp, apperrors.CodeNotFound)

	// The deleted user's token no longer resolves.
	resp = doRequest(t, app, http.MethodGet, "/api/v1/auth/me", issueToken(t, tokens, target.Email), nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
