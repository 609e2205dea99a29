package app

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"mapengine.pawmap.org/internal/middleware"
)

// Routes registers all endpoints on an httprouter instance and wraps it with
// the Sentry and security-headers middlewares.
//
// Registered routes:
//   - GET  /v1/healthcheck  health and readiness snapshot
//   - GET  /v1/map          current render model, with filter query params
//   - POST /v1/map/refresh  force a refetch around the current position
//   - POST /v1/map/recenter re-acquire the device position and refetch
//   - GET  /v1/navigate     external-maps handoff URL for a destination
//   - GET  /metrics         cached Prometheus exposition
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)
	router.HandlerFunc(http.MethodGet, "/v1/map", app.mapHandler)
	router.HandlerFunc(http.MethodPost, "/v1/map/refresh", app.refreshHandler)
	router.HandlerFunc(http.MethodPost, "/v1/map/recenter", app.recenterHandler)
	router.HandlerFunc(http.MethodGet, "/v1/navigate", app.navigateHandler)
	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second))

	handler := middleware.SentryMiddleware(router)
	return middleware.SecurityHeaders(handler)
}
