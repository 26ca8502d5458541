// Package entrypoint obtains the web application from the resolved sibling directory and drives it
// in one of two modes: hosted (a platform imports the package and routes requests to ServeHTTP)
// or direct (the process calls Run, which starts the server loop).
package entrypoint

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"sync"

	"jsacademy/backend/internal/appdir"
	"jsacademy/backend/internal/logging"
)

// Application is the web application driven by an Entrypoint.
type Application interface {
	http.Handler
	// Run starts the server loop and blocks until ctx is done or the server fails.
	Run(ctx context.Context) error
}

// Loader obtains the Application from the resolved sibling root.
type Loader func(ctx context.Context, root fs.FS) (Application, error)

// Entrypoint resolves the sibling directory through a search path and loads the Application once.
type Entrypoint struct {
	search *appdir.SearchPath
	name   string
	load   Loader

	once sync.Once
	app  Application
	err  error
}

// New returns an Entrypoint that resolves name through search and loads the application with load.
// Nothing is resolved or loaded until App, ServeHTTP, or Run is called.
func New(search *appdir.SearchPath, name string, load Loader) *Entrypoint {
	return &Entrypoint{search: search, name: name, load: load}
}

// App resolves the sibling root and loads the application. The load happens at most once; later calls
// return the same application or the same error. Errors wrap the underlying cause.
func (e *Entrypoint) App(ctx context.Context) (Application, error) {
	e.once.Do(func() {
		e.app, e.err = e.resolveAndLoad(ctx)
	})
	return e.app, e.err
}

func (e *Entrypoint) resolveAndLoad(ctx context.Context) (Application, error) {
	if e.search == nil {
		return nil, fmt.Errorf("entrypoint: no search path")
	}
	if e.load == nil {
		return nil, fmt.Errorf("entrypoint: no loader")
	}
	root, err := e.search.Open(e.name)
	if err != nil {
		return nil, fmt.Errorf("entrypoint: resolve %q: %w", e.name, err)
	}
	app, err := e.load(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("entrypoint: load application: %w", err)
	}
	if app == nil {
		return nil, fmt.Errorf("entrypoint: loader returned no application")
	}
	return app, nil
}

// ServeHTTP forwards the request to the application, loading it on first use. It never calls Run:
// in hosted mode the platform owns the listener. The load is detached from the request's cancellation
// because its outcome is memoised for every later request.
func (e *Entrypoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	app, err := e.App(context.WithoutCancel(r.Context()))
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("entrypoint: application unavailable")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	app.ServeHTTP(w, r)
}

// Run loads the application and calls its Run exactly once. The error from Run is returned unmodified.
func (e *Entrypoint) Run(ctx context.Context) error {
	app, err := e.App(ctx)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
