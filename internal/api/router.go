// Package api exposes the timer manager over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// Token enables bearer auth on /api routes when set.
	Token  string
	Logger zerolog.Logger
	// Events, if set, is mounted at GET /api/events.
	Events http.Handler
}

// NewRouter creates a chi router with health checks and all API routes.
func NewRouter(h *Handler, opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)

	// Health checks are unauthenticated.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(opts.Token))

		r.Get("/timers", h.ListTimers)
		r.Post("/timers", h.CreateTimer)
		r.Get("/timers/{id}", h.GetTimer)
		r.Delete("/timers/{id}", h.DeleteTimer)
		r.Post("/timers/{id}/commands", h.DispatchCommand)

		r.Post("/batch/{action}", h.Batch)
		r.Get("/stats", h.Stats)
		r.Get("/notifications", h.Notifications)

		if opts.Events != nil {
			r.Get("/events", opts.Events.ServeHTTP)
		}
	})

	return r
}
