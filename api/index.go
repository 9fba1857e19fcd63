// Package handler exposes the API as a single net/http handler for
// serverless deployments.
package handler

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"sync"

	"github.com/amirasaad/studentaid/infra/initializer"
	"github.com/amirasaad/studentaid/pkg/app"
	"github.com/amirasaad/studentaid/pkg/config"
	"github.com/amirasaad/studentaid/webapi"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

var (
	once    sync.Once
	handler http.HandlerFunc
)

// Handler is the main entry point of the application.
// Think of it like the main() method
func Handler(w http.ResponseWriter, r *http.Request) {
	// This is needed to set the proper request path in `*fiber.Ctx`
	r.RequestURI = r.URL.String()

	once.Do(func() { handler = build() })
	handler.ServeHTTP(w, r)
}

// build wires the fiber application once per instance. The ledger and bus
// live for the lifetime of the process, so there is no cleanup.
func build() http.HandlerFunc {
	logger := slog.New(slog.NewTextHandler(log.Writer(), &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load application configuration", "error", err)
		log.Fatal(err)
	}
	deps, _, err := initializer.InitializeDependenciesWithLogOutput(context.Background(), cfg, log.Writer())
	if err != nil {
		logger.Error("Failed to initialize dependencies", "error", err)
		log.Fatal(err)
	}
	return adaptor.FiberApp(webapi.SetupApp(app.New(deps, cfg)))
}
