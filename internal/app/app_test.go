package app

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"jsacademy/backend/internal/appdir"
	"jsacademy/backend/internal/config"
	"jsacademy/backend/internal/entrypoint"
	"jsacademy/backend/internal/logging"
	"jsacademy/backend/internal/telemetry"
)

const testPaths = `paths:
  - key: fundamentals
    title: JavaScript Fundamentals
    modules: [variables-types]
`

const testLesson = `id: variables-types
path: fundamentals
title: Variables and Data Types
difficulty: Beginner
`

const testChallenges = `categories:
  - key: basics
    title: JavaScript Basics
    difficulty: Easy
    challenges:
      - id: basics-2
        title: Sum Two Numbers
        starter_code: |
          function sum(a, b) {
          }
        tests:
          - input: [2, 3]
            expected: 5
        solution: |
          function sum(a, b) { return a + b; }
`

func testRoot() fstest.MapFS {
	return fstest.MapFS{
		"content/paths.yaml":                   {Data: []byte(testPaths)},
		"content/lessons/variables-types.yaml": {Data: []byte(testLesson)},
		"content/challenges.yaml":              {Data: []byte(testChallenges)},
		"content/data.json":                    {Data: []byte(`{"message":"Hello from Go!"}`)},
		"static/index.html":                    {Data: []byte("<!doctype html><title>jsacademy</title>")},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:              "127.0.0.1:0",
		SandboxTimeout:        "1s",
		SandboxMaxSourceBytes: 64 * 1024,
		RateLimitRPS:          5,
		RateLimitBurst:        10,
		LearnerTokenIssuer:    "jsacademy",
		LearnerTokenAudience:  "jsacademy-api",
		BcryptCost:            4,
		ServiceName:           "jsacademy-test",
		ShutdownTimeout:       "2s",
	}
}

type recordingEmitter struct {
	events chan *telemetry.Event
}

func (r *recordingEmitter) Emit(_ context.Context, e *telemetry.Event) error {
	select {
	case r.events <- e:
	default:
	}
	return nil
}

func newTestApp(t *testing.T, root fs.FS, opts ...Option) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(), root, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNew_ServesContentAndStatic(t *testing.T) {
	a := newTestApp(t, testRoot())

	rec := get(a, "/api/paths")
	if rec.Code != http.StatusOK {
		t.Fatalf("/api/paths status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "fundamentals") {
		t.Errorf("/api/paths body %s missing fundamentals", rec.Body.String())
	}
	if rec := get(a, "/api/data"); !strings.Contains(rec.Body.String(), "Hello from Go!") {
		t.Errorf("/api/data body = %s", rec.Body.String())
	}
	if rec := get(a, "/"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<title>jsacademy</title>") {
		t.Errorf("/ status = %d body %s", rec.Code, rec.Body.String())
	}
	if rec := get(a, "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("/readyz status = %d body %s", rec.Code, rec.Body.String())
	}
}

func TestNew_WithoutStatic(t *testing.T) {
	root := testRoot()
	delete(root, "static/index.html")
	a := newTestApp(t, root)
	if rec := get(a, "/"); rec.Code != http.StatusNotFound {
		t.Errorf("/ status = %d, want 404 without static/", rec.Code)
	}
}

func TestNew_MissingContent(t *testing.T) {
	_, err := New(context.Background(), testConfig(), fstest.MapFS{"static/index.html": {Data: []byte("x")}})
	if err == nil {
		t.Fatal("New should fail without content/")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("New error = %v, want fs.ErrNotExist in chain", err)
	}
}

func TestNew_InvalidInputs(t *testing.T) {
	if _, err := New(context.Background(), nil, testRoot()); err == nil {
		t.Error("New with nil config should fail")
	}
	if _, err := New(context.Background(), testConfig(), nil); err == nil {
		t.Error("New with nil root should fail")
	}
	cfg := testConfig()
	cfg.ContentReloadSchedule = "every now and then"
	if _, err := New(context.Background(), cfg, testRoot()); err == nil {
		t.Error("New with an invalid reload schedule should fail")
	}
	cfg = testConfig()
	cfg.RedisURL = "not a url"
	if _, err := New(context.Background(), cfg, testRoot()); err == nil {
		t.Error("New with an invalid REDIS_URL should fail")
	}
}

func TestNew_EmitsActivityToExtraEmitter(t *testing.T) {
	rec := &recordingEmitter{events: make(chan *telemetry.Event, 16)}
	a := newTestApp(t, testRoot(), WithEmitter(rec))

	req := httptest.NewRequest(http.MethodPost, "/api/learners", nil)
	w := httptest.NewRecorder()
	a.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d body %s", w.Code, w.Body.String())
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-rec.events:
			if e.EventType == "learner_registered" {
				return
			}
		case <-deadline:
			t.Fatal("learner_registered event not emitted")
		}
	}
}

func TestReloadContent(t *testing.T) {
	root := testRoot()
	a := newTestApp(t, root)

	root["content/paths.yaml"] = &fstest.MapFile{Data: []byte(testPaths + `  - key: asynchronous
    title: Async Programming
    modules: [callbacks]
`)}
	a.ReloadContent()
	if rec := get(a, "/api/paths/asynchronous"); rec.Code != http.StatusOK {
		t.Errorf("reloaded path status = %d", rec.Code)
	}

	root["content/paths.yaml"] = &fstest.MapFile{Data: []byte("paths: [")}
	a.ReloadContent()
	if rec := get(a, "/api/paths/asynchronous"); rec.Code != http.StatusOK {
		t.Errorf("failed reload should keep catalog; status = %d", rec.Code)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	a := newTestApp(t, testRoot(), WithShutdownDrain(0))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	cfg := testConfig()
	cfg.HTTPAddr = lis.Addr().String()
	a, err := New(context.Background(), cfg, testRoot())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Run(context.Background()); err == nil {
		t.Error("Run should fail when the address is in use")
	}
}

func TestServeHTTP_WarnsOnceWhenScheduleNeverRuns(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	t.Cleanup(func() { logging.SetOutput(os.Stderr) })

	cfg := testConfig()
	cfg.ContentReloadSchedule = "@every 1m"
	a, err := New(context.Background(), cfg, testRoot())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	for i := 0; i < 3; i++ {
		if rec := get(a, "/api/paths"); rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	if n := strings.Count(buf.String(), "CONTENT_RELOAD_SCHEDULE is ignored"); n != 1 {
		t.Errorf("warning logged %d times, want 1; log:\n%s", n, buf.String())
	}
}

func TestClose_Idempotent(t *testing.T) {
	a := newTestApp(t, testRoot())
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(context.Background()); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestLoader_ThroughEntrypoint(t *testing.T) {
	embedded := fstest.MapFS{}
	for name, f := range testRoot() {
		embedded["src/"+name] = f
	}
	ep := entrypoint.New(appdir.NewSearchPath(appdir.FSRoot("embedded", embedded)), "src", Loader(testConfig()))
	app, err := ep.App(context.Background())
	if err != nil {
		t.Fatalf("App: %v", err)
	}
	t.Cleanup(func() { _ = app.(*App).Close(context.Background()) })

	if rec := get(ep, "/api/lessons/variables-types"); rec.Code != http.StatusOK {
		t.Errorf("lesson status = %d", rec.Code)
	}
}

func TestSearchPath_Order(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.AppRoot = dir
	embedded := testRoot()

	sp, err := SearchPath(cfg, embedded)
	if err != nil {
		t.Fatalf("SearchPath: %v", err)
	}
	roots := sp.Roots()
	if len(roots) < 2 {
		t.Fatalf("roots = %v, want APP_ROOT and embedded", roots)
	}
	if roots[0].Name != "APP_ROOT" || roots[0].Dir != dir {
		t.Errorf("first root = %v, want APP_ROOT=%s", roots[0], dir)
	}
	if last := roots[len(roots)-1]; last.Name != "embedded" {
		t.Errorf("last root = %v, want embedded", last)
	}

	// An empty APP_ROOT is still the first match; the loader reports the missing content.
	ep := entrypoint.New(sp, SourceRoot, Loader(testConfig()))
	if _, err := ep.App(context.Background()); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("App with empty APP_ROOT: want fs.ErrNotExist, got %v", err)
	}
}

func TestSearchPath_MissingAppRoot(t *testing.T) {
	cfg := testConfig()
	cfg.AppRoot = filepath.Join(t.TempDir(), "does-not-exist")
	if _, err := SearchPath(cfg, testRoot()); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("SearchPath with missing APP_ROOT: want fs.ErrNotExist, got %v", err)
	}

	file := filepath.Join(t.TempDir(), "root.txt")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.AppRoot = file
	if _, err := SearchPath(cfg, testRoot()); err == nil {
		t.Error("SearchPath with a file as APP_ROOT should fail")
	}
}

func TestSearchPath_EmbeddedOnly(t *testing.T) {
	sp, err := SearchPath(testConfig(), testRoot())
	if err != nil {
		t.Fatalf("SearchPath: %v", err)
	}
	ep := entrypoint.New(sp, SourceRoot, Loader(testConfig()))
	rec := httptest.NewRecorder()
	ep.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if app, err := ep.App(context.Background()); err == nil {
		_ = app.(*App).Close(context.Background())
	}
}
