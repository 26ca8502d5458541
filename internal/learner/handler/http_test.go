package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsacademy/backend/internal/challenge"
	"jsacademy/backend/internal/content"
	"jsacademy/backend/internal/learner/repository"
	"jsacademy/backend/internal/learner/service"
	"jsacademy/backend/internal/security"
	"jsacademy/backend/internal/server/middleware"
)

const pathsYAML = `paths:
  - key: fundamentals
    title: JavaScript Fundamentals
    modules: [variables-types, control-flow]
`

type testServer struct {
	router http.Handler
	tokens *security.TokenProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cat, err := content.Load(fstest.MapFS{"paths.yaml": {Data: []byte(pathsYAML)}})
	require.NoError(t, err)
	chs, err := challenge.ParseCatalog([]byte("categories: []\n"))
	require.NoError(t, err)
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)
	svc := service.NewLearnerService(repository.NewMemoryRepository(), security.NewHasher(4), tokens,
		content.NewStore(cat), challenge.NewStore(chs), nil)

	r := mux.NewRouter()
	r.Use(middleware.Auth(tokens))
	New(svc).Register(r, r)
	return &testServer{router: r, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, body string) CreateResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/learners", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp CreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreate(t *testing.T) {
	s := newTestServer(t)
	resp := s.register(t, `{"displayName":"Ada"}`)
	assert.Equal(t, "Ada", resp.DisplayName)
	assert.NotEmpty(t, resp.LearnerID)
	assert.NotEmpty(t, resp.RecoveryCode)

	id, err := s.tokens.ValidateAccess(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.LearnerID, id)

	anon := s.register(t, "")
	assert.Equal(t, "Learner", anon.DisplayName)
}

func TestCreate_BadBody(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/learners", "", `{"displayName":"Ada","admin":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToken(t *testing.T) {
	s := newTestServer(t)
	reg := s.register(t, `{"displayName":"Ada"}`)

	rec := s.do(t, http.MethodPost, "/api/learners/"+reg.LearnerID+"/token", "", `{"recoveryCode":"`+reg.RecoveryCode+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tok TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	assert.Equal(t, reg.LearnerID, tok.LearnerID)

	rec = s.do(t, http.MethodPost, "/api/learners/"+reg.LearnerID+"/token", "", `{"recoveryCode":"AAAA-BBBB-CCCC-DDDD"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/learners/"+reg.LearnerID+"/token", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteLessonAndProgress(t *testing.T) {
	s := newTestServer(t)
	reg := s.register(t, "")

	rec := s.do(t, http.MethodPost, "/api/me/lessons/variables-types/complete", reg.Token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep service.ProgressReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, []string{"variables-types"}, rep.CompletedLessons)
	assert.InDelta(t, 50.0, rep.Paths["fundamentals"], 1e-9)

	rec = s.do(t, http.MethodPost, "/api/me/lessons/unknown/complete", reg.Token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/me/progress", reg.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.InDelta(t, 50.0, rep.Overall, 1e-9)
}

func TestMeRoutesRequireLearner(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/me/progress", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/me/lessons/variables-types/complete", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/me/progress", "garbage", "").Code)
}

func TestCompleteLesson_TokenForDeletedLearner(t *testing.T) {
	s := newTestServer(t)
	token, _, err := s.tokens.IssueAccess("ghost", "Ghost")
	require.NoError(t, err)
	rec := s.do(t, http.MethodPost, "/api/me/lessons/variables-types/complete", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
