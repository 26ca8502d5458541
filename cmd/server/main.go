// server runs the application directly: it resolves the src tree, loads the app and serves HTTP on
// HTTP_ADDR until SIGINT or SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"jsacademy/backend/internal/app"
	"jsacademy/backend/internal/config"
	"jsacademy/backend/internal/entrypoint"
	"jsacademy/backend/internal/logging"
	"jsacademy/backend/src"
)

func main() {
	log := logging.Logger()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := logging.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("config: %v", err)
	}

	search, err := app.SearchPath(cfg, src.FS())
	if err != nil {
		log.Fatalf("search path: %v", err)
	}
	ep := entrypoint.New(search, app.SourceRoot, app.Loader(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ep.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
