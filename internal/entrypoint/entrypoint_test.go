package entrypoint

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"jsacademy/backend/internal/appdir"
)

// fakeApp implements Application and counts calls.
type fakeApp struct {
	runs   atomic.Int32
	serves atomic.Int32
	runErr error
}

func (f *fakeApp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.serves.Add(1)
	w.WriteHeader(http.StatusTeapot)
}

func (f *fakeApp) Run(ctx context.Context) error {
	f.runs.Add(1)
	return f.runErr
}

func searchWithSrc() *appdir.SearchPath {
	return appdir.NewSearchPath(appdir.FSRoot("embedded", fstest.MapFS{
		"src/content/paths.yaml": {Data: []byte("paths: []")},
	}))
}

func countingLoader(app Application, loads *atomic.Int32) Loader {
	return func(ctx context.Context, root fs.FS) (Application, error) {
		loads.Add(1)
		if _, err := fs.Stat(root, "content/paths.yaml"); err != nil {
			return nil, err
		}
		return app, nil
	}
}

func TestNew_DoesNotLoadOrRun(t *testing.T) {
	app := &fakeApp{}
	var loads atomic.Int32
	_ = New(searchWithSrc(), "src", countingLoader(app, &loads))
	if loads.Load() != 0 {
		t.Errorf("loads = %d, want 0 before first use", loads.Load())
	}
	if app.runs.Load() != 0 {
		t.Errorf("runs = %d, want 0", app.runs.Load())
	}
}

func TestServeHTTP_NeverRuns(t *testing.T) {
	app := &fakeApp{}
	var loads atomic.Int32
	ep := New(searchWithSrc(), "src", countingLoader(app, &loads))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		ep.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/paths", nil))
		if rec.Code != http.StatusTeapot {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
		}
	}
	if app.runs.Load() != 0 {
		t.Errorf("runs = %d, want 0 in hosted mode", app.runs.Load())
	}
	if app.serves.Load() != 3 {
		t.Errorf("serves = %d, want 3", app.serves.Load())
	}
	if loads.Load() != 1 {
		t.Errorf("loads = %d, want 1", loads.Load())
	}
}

func TestServeHTTP_CancelledFirstRequestDoesNotPoisonLoad(t *testing.T) {
	app := &fakeApp{}
	ep := New(searchWithSrc(), "src", func(ctx context.Context, root fs.FS) (Application, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return app, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	first := httptest.NewRecorder()
	ep.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/paths", nil).WithContext(ctx))
	if first.Code != http.StatusTeapot {
		t.Errorf("first (cancelled) request status = %d, want %d", first.Code, http.StatusTeapot)
	}

	second := httptest.NewRecorder()
	ep.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/paths", nil))
	if second.Code != http.StatusTeapot {
		t.Errorf("second request status = %d, want %d", second.Code, http.StatusTeapot)
	}
}

func TestRun_CallsRunExactlyOnce(t *testing.T) {
	app := &fakeApp{}
	var loads atomic.Int32
	ep := New(searchWithSrc(), "src", countingLoader(app, &loads))

	if err := ep.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if app.runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", app.runs.Load())
	}
	if loads.Load() != 1 {
		t.Errorf("loads = %d, want 1", loads.Load())
	}
}

func TestRun_ReturnsApplicationErrorUnmodified(t *testing.T) {
	runErr := errors.New("listen tcp :8080: address already in use")
	app := &fakeApp{runErr: runErr}
	var loads atomic.Int32
	ep := New(searchWithSrc(), "src", countingLoader(app, &loads))

	if err := ep.Run(context.Background()); err != runErr {
		t.Errorf("Run error = %v, want %v", err, runErr)
	}
}

func TestApp_MissingSibling(t *testing.T) {
	var loads atomic.Int32
	sp := appdir.NewSearchPath(appdir.FSRoot("embedded", fstest.MapFS{}))
	ep := New(sp, "src", countingLoader(&fakeApp{}, &loads))

	_, err := ep.App(context.Background())
	if !errors.Is(err, appdir.ErrNotFound) {
		t.Fatalf("App missing sibling: want ErrNotFound, got %v", err)
	}
	if loads.Load() != 0 {
		t.Errorf("loader should not be called when the sibling is missing")
	}

	rec := httptest.NewRecorder()
	ep.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestApp_LoaderErrorPropagates(t *testing.T) {
	loadErr := &fs.PathError{Op: "open", Path: "content/paths.yaml", Err: fs.ErrNotExist}
	ep := New(searchWithSrc(), "src", func(context.Context, fs.FS) (Application, error) {
		return nil, loadErr
	})

	_, err := ep.App(context.Background())
	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("App: want *fs.PathError in chain, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("App: want fs.ErrNotExist in chain, got %v", err)
	}

	if err := ep.Run(context.Background()); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Run after failed load: want fs.ErrNotExist, got %v", err)
	}
}

func TestApp_NilApplication(t *testing.T) {
	ep := New(searchWithSrc(), "src", func(context.Context, fs.FS) (Application, error) {
		return nil, nil
	})
	if _, err := ep.App(context.Background()); err == nil {
		t.Error("App should fail when loader returns nil application")
	}
}

func TestApp_NilLoaderAndSearch(t *testing.T) {
	if _, err := New(nil, "src", nil).App(context.Background()); err == nil {
		t.Error("App with nil search path should fail")
	}
	if _, err := New(searchWithSrc(), "src", nil).App(context.Background()); err == nil {
		t.Error("App with nil loader should fail")
	}
}

func TestApp_ConcurrentFirstUseLoadsOnce(t *testing.T) {
	app := &fakeApp{}
	var loads atomic.Int32
	ep := New(searchWithSrc(), "src", countingLoader(app, &loads))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			ep.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		}()
	}
	wg.Wait()
	if loads.Load() != 1 {
		t.Errorf("loads = %d, want 1", loads.Load())
	}
	if app.runs.Load() != 0 {
		t.Errorf("runs = %d, want 0", app.runs.Load())
	}
}
