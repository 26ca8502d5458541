// Package handler is the serverless function entry point. The platform imports the package and routes
// every request to Handler; nothing is loaded and no listener is started until the first request.
package handler

import (
	"net/http"
	"sync"

	"jsacademy/backend/internal/app"
	"jsacademy/backend/internal/config"
	"jsacademy/backend/internal/entrypoint"
	"jsacademy/backend/internal/httputil"
	"jsacademy/backend/internal/logging"
	"jsacademy/backend/src"
)

var (
	once sync.Once
	ep   *entrypoint.Entrypoint
	err  error
)

func setup() {
	var cfg *config.Config
	if cfg, err = config.Load(); err != nil {
		return
	}
	if err = logging.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return
	}
	search, searchErr := app.SearchPath(cfg, src.FS())
	if searchErr != nil {
		err = searchErr
		return
	}
	ep = entrypoint.New(search, app.SourceRoot, app.Loader(cfg))
}

// Handler serves one request through the application. It never starts a server.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(setup)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Error("api: startup failed")
		httputil.WriteError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	ep.ServeHTTP(w, r)
}
