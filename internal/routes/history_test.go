package routes

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homescout/listing-api/internal/models"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

type historyPage struct {
	Items []models.SearchRecord `json:"items"`
	Count int                   `json:"count"`
}

func seedHistory(t *testing.T, history *memHistoryStore, identity string, n int) []models.SearchRecord {
	t.Helper()
	records := make([]models.SearchRecord, 0, n)
	for i := 0; i < n; i++ {
		record, err := history.Append(context.Background(), identity,
			map[string]string{"bedrooms": fmt.Sprintf("%d", i)}, i)
		require.NoError(t, err)
		records = append(records, *record)
	}
	return records
}

func TestHistoryList(t *testing.T) {
	stores := newTestStores()
	users := stores.Users.(*memUserStore)
	history := stores.History.(*memHistoryStore)
	user := seedUser(t, users, "a@b.com", "pw123456", true, false)
	seeded := seedHistory(t, history, user.UserID, 5)

	app, tokens := newTestApp(t, testConfig(20), stores)
	token := issueToken(t, tokens, user.Email)

	t.Run("requires authentication", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/v1/history", "", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("newest first", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/v1/history", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var page historyPage
		decodeJSON(t, resp, &page)
		require.Equal(t, 5, page.Count)
		assert.Equal(t, seeded[4].RecordID, page.Items[0].RecordID)
		assert.Equal(t, seeded[0].RecordID, page.Items[4].RecordID)
	})

	t.Run("limit and skip", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/v1/history?limit=2&skip=1", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var page historyPage
		decodeJSON(t, resp, &page)
		require.Equal(t, 2, page.Count)
		assert.Equal(t, seeded[3].RecordID, page.Items[0].RecordID)
		assert.Equal(t, seeded[2].RecordID, page.Items[1].RecordID)
	})

	t.Run("skip past the end yields an empty page", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/v1/history?skip=50", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var page historyPage
		decodeJSON(t, resp, &page)
		assert.Equal(t, 0, page.Count)
		assert.NotNil(t, page.Items)
	})

	t.Run("extreme skip is not an error", func(t *testing.T) {
		resp := doRequest(t, app, http.MethodGet, "/api/v1/history?skip=2147483647", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var page historyPage
		decodeJSON(t, resp, &page)
		assert.Equal(t, 0, page.Count)
	})
}

func TestHistoryList_IsolatedPerUser(t *testing.T) {
	stores := newTestStores()
	users := stores.Users.(*memUserStore)
	history := stores.History.(*memHistoryStore)
	alice := seedUser(t, users, "alice@b.com", "pw123456", true, false)
	bob := seedUser(t, users, "bob@b.com", "pw123456", true, false)
	seedHistory(t, history, alice.UserID, 3)

	app, tokens := newTestApp(t, testConfig(20), stores)

	resp := doRequest(t, app, http.MethodGet, "/api/v1/history", issueToken(t, tokens, bob.Email), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page historyPage
	decodeJSON(t, resp, &page)
	assert.Equal(t, 0, page.Count)
}

func TestHistoryDeleteOne(t *testing.T) {
	stores := newTestStores()
	users := stores.Users.(*memUserStore)
	history := stores.History.(*memHistoryStore)
	user := seedUser(t, users, "a@b.com", "pw123456", true, false)
	seeded := seedHistory(t, history, user.UserID, 2)

	app, tokens := newTestApp(t, testConfig(20), stores)
	token := issueToken(t, tokens, user.Email)

	resp := doRequest(t, app, http.MethodDelete, "/api/v1/history/"+seeded[0].RecordID, token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	count, err := history.CountFor(context.Background(), user.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Deleting the same record again is a miss.
	resp = doRequest(t, app, http.MethodDelete, "/api/v1/history/"+seeded[0].RecordID, token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assertErrorCode(t, resp, apperrors.CodeNotFound)
}

func TestHistoryDeleteOne_OtherUsersRecordIsInvisible(t *testing.T) {
	stores := newTestStores()
	users := stores.Users.(*memUserStore)
	history := stores.History.(*memHistoryStore)
	alice := seedUser(t, users, "alice@b.com", "pw123456", true, false)
	bob := seedUser(t, users, "bob@b.com", "pw123456", true, false)
	seeded := seedHistory(t, history, alice.UserID, 1)

	app, tokens := newTestApp(t, testConfig(20), stores)

	resp := doRequest(t, app, http.MethodDelete, "/api/v1/history/"+seeded[0].RecordID,
		issueToken(t, tokens, bob.Email), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	count, err := history.CountFor(context.Background(), alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHistoryDeleteAll_Idempotent(t *testing.T) {
	stores := newTestStores()
	users := stores.Users.(*memUserStore)
	history := stores.History.(*memHistoryStore)
	user := seedUser(t, users, "a@b.com", "pw123456", true, false)
	seedHistory(t, history, user.UserID, 3)

	app, tokens := newTestApp(t, testConfig(20), stores)
	token := issueToken(t, tokens, user.Email)

	resp := doRequest(t, app, http.MethodDelete, "/api/v1/history", token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	count, err := history.CountFor(context.Background(), user.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Purging an already-empty history still succeeds.
	resp = doRequest(t, app, http.MethodDelete, "/api/v1/history", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
