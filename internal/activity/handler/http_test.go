package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsacademy/backend/internal/activity/domain"
	"jsacademy/backend/internal/activity/repository"
	"jsacademy/backend/internal/server/middleware"
)

func seeded(t *testing.T) *repository.MemoryRepository {
	t.Helper()
	repo := repository.NewMemoryRepository(0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, action := range []string{"learner_registered", "lesson_completed", "challenge_passed"} {
		require.NoError(t, repo.Create(context.Background(), &domain.Event{
			ID: action, LearnerID: "learner-1", Action: action, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(context.Background(), &domain.Event{ID: "other", LearnerID: "learner-2", Action: "code_run"}))
	return repo
}

func serve(h *Handler, learnerID, target string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	h.Register(r)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if learnerID != "" {
		req = req.WithContext(middleware.WithLearner(req.Context(), learnerID))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestList_NewestFirstAndScoped(t *testing.T) {
	rec := serve(New(seeded(t)), "learner-1", "/api/me/activity")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 3)
	assert.Equal(t, "challenge_passed", resp.Events[0].Action)
	assert.Equal(t, "learner_registered", resp.Events[2].Action)
	assert.Equal(t, 50, resp.Limit)
	assert.NotContains(t, rec.Body.String(), `"ip"`)
}

func TestList_Pagination(t *testing.T) {
	rec := serve(New(seeded(t)), "learner-1", "/api/me/activity?limit=1&offset=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "lesson_completed", resp.Events[0].Action)
}

func TestList_EmptyIsArray(t *testing.T) {
	rec := serve(New(seeded(t)), "learner-9", "/api/me/activity")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"events":[]`)
}

func TestList_BadQuery(t *testing.T) {
	for _, q := range []string{"limit=0", "limit=abc", "offset=-1"} {
		rec := serve(New(seeded(t)), "learner-1", "/api/me/activity?"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestList_RequiresLearner(t *testing.T) {
	rec := serve(New(seeded(t)), "", "/api/me/activity")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
