package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"jsacademy/backend/internal/content"
)

func testRouter(t *testing.T, cat *content.Catalog) *mux.Router {
	t.Helper()
	r := mux.NewRouter()
	New(content.NewStore(cat)).Register(r)
	return r
}

func testCatalog() *content.Catalog {
	return &content.Catalog{
		Paths: []content.Path{{
			Key:     "fundamentals",
			Title:   "JavaScript Fundamentals",
			Modules: []string{"variables-types", "control-flow"},
		}},
		Lessons: map[string]*content.Lesson{
			"variables-types": {ID: "variables-types", Path: "fundamentals", Title: "Variables and Data Types", Difficulty: "Beginner", Duration: "25 min"},
		},
		Data: json.RawMessage(`{"message":"Hello from Go!"}`),
	}
}

func do(r http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListPaths(t *testing.T) {
	rec := do(testRouter(t, testCatalog()), "/api/paths")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var paths []PathSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &paths); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(paths) != 1 || len(paths[0].Modules) != 2 {
		t.Fatalf("paths = %+v", paths)
	}
	if !paths[0].Modules[0].Available || paths[0].Modules[0].Title != "Variables and Data Types" {
		t.Errorf("module 0 = %+v", paths[0].Modules[0])
	}
	if paths[0].Modules[1].Available {
		t.Errorf("control-flow has no lesson and should be unavailable")
	}
}

func TestGetPath(t *testing.T) {
	r := testRouter(t, testCatalog())

	rec := do(r, "/api/paths/fundamentals")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var detail PathDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(detail.Lessons) != 1 || detail.Lessons[0].ID != "variables-types" {
		t.Errorf("lessons = %+v", detail.Lessons)
	}

	if rec := do(r, "/api/paths/unknown"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestGetLesson(t *testing.T) {
	r := testRouter(t, testCatalog())
	if rec := do(r, "/api/lessons/variables-types"); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec := do(r, "/api/lessons/control-flow"); rec.Code != http.StatusNotFound {
		t.Errorf("unauthored lesson status = %d, want 404", rec.Code)
	}
}

func TestGetData(t *testing.T) {
	rec := do(testRouter(t, testCatalog()), "/api/data")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if body["message"] != "Hello from Go!" {
		t.Errorf("body = %v", body)
	}

	cat := testCatalog()
	cat.Data = nil
	if rec := do(testRouter(t, cat), "/api/data"); rec.Code != http.StatusNotFound {
		t.Errorf("missing data status = %d, want 404", rec.Code)
	}
}

func TestNotLoaded(t *testing.T) {
	if rec := do(testRouter(t, nil), "/api/paths"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
