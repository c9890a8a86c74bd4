package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raveportal/pageshare/internal/metrics"
	"github.com/raveportal/pageshare/internal/ratelimit"
	"github.com/raveportal/pageshare/internal/session"
	"github.com/raveportal/pageshare/internal/ui"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Sessions       *session.Manager
	Metrics        *metrics.Metrics
	AllowedOrigins []string

	// Limiter throttles session creation per client address. Nil disables it.
	Limiter   *ratelimit.Limiter
	CreateRPM int
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	r.Use(secureHeaders)
	if len(deps.AllowedOrigins) > 0 {
		r.Use(corsMiddleware(deps.AllowedOrigins))
	}

	sessions := newSessionsHandler(deps.Sessions)
	live := newLiveHandler(deps.Sessions, deps.AllowedOrigins)

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": deps.Sessions.Len(),
		})
	})

	// Browser shell.
	r.Handle("/", ui.Handler())

	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{}))
		r.Get("/api/v1/metrics/summary", deps.Metrics.Handler())
	}

	r.Route("/api/v1/sessions", func(sr chi.Router) {
		sr.With(createLimit(deps)).Post("/", sessions.Create)
		sr.Get("/{id}", sessions.Get)
		sr.Delete("/{id}", sessions.Delete)
		sr.Post("/{id}/show", sessions.Show)
		sr.Post("/{id}/events", sessions.Event)
		sr.Post("/{id}/clone", sessions.Clone)
		sr.Get("/{id}/ws", live.Serve)
	})

	return r
}

func createLimit(deps RouterDeps) func(http.Handler) http.Handler {
	if deps.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	var onReject []func()
	if deps.Metrics != nil {
		onReject = append(onReject, func() { deps.Metrics.IncRateLimitRejection("http", "create_session") })
	}
	return ratelimit.Middleware(deps.Limiter, deps.CreateRPM, func(r *http.Request) string {
		return ratelimit.ClientKey(clientIP(r))
	}, onReject...)
}
