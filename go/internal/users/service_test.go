package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*mux.Router, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	r := mux.NewRouter()
	NewService(NewApp(repo)).RegisterRoutes(r)
	return r, repo
}

func TestServiceGetProfile(t *testing.T) {
	r, repo := newTestRouter(t)
	_, err := repo.CreateProfile(context.Background(), "v-1", "Alice", "🦊")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profile/v-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got PublicProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, PublicProfile{ID: "v-1", Username: "Alice", Avatar: "🦊"}, got)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profile/nobody", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"profile not found"}`, rec.Body.String())
}

func TestServiceAvatarsAndLeaderboard(t *testing.T) {
	r, repo := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/avatars", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var avatars struct {
		Avatars []string `json:"avatars"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avatars))
	assert.Equal(t, Avatars, avatars.Avatars)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/leaderboard", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	repo.failWith = assert.AnError
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
