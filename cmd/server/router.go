package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/synth-api/internal/api"
	apiMiddleware "github.com/phrazzld/synth-api/internal/api/middleware"
	"github.com/phrazzld/synth-api/internal/platform/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(apiMiddleware.CORS(app.config.Server.AllowedOrigins))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.verifier)
	api.NewSynthesisHandler(app.engine).RegisterRoutes(r, authMiddleware.Authenticate)

	r.Get("/health", app.health)

	return otelhttp.NewHandler(r, telemetry.ServiceName,
		otelhttp.WithTracerProvider(app.telemetry.TracerProvider),
		otelhttp.WithMeterProvider(app.telemetry.MeterProvider))
}

// health reports whether the server can reach its database.
func (app *application) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := app.db.PingContext(ctx); err != nil {
		app.logger.Error("health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		app.logger.Error("Failed to write health check response", "error", err)
	}
}
