package httpadmin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig holds the operator credentials and the optional metrics handler.
type RouterConfig struct {
	Username string
	Password string
	Metrics  http.Handler
}

// NewRouter builds the admin API behind basic auth.
func NewRouter(h *Handler, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BasicAuth("matchday-admin", map[string]string{cfg.Username: cfg.Password}))

		r.Get("/api/subscribers", h.ListSubscribers)
		r.Post("/api/subscribers/{id}/block", h.Block)
		r.Delete("/api/subscribers/{id}/block", h.Unblock)

		r.Route("/api/access", func(r chi.Router) {
			r.Get("/mode", h.GetAccessMode)
			r.Put("/mode", h.SetAccessMode)
			r.Post("/{mode}/{id}", h.AddAccessEntry)
			r.Delete("/{mode}/{id}", h.RemoveAccessEntry)
		})

		r.Post("/api/messages", h.QueueMessage)
		r.Post("/api/maintenance/cleanup", h.RequestCleanup)

		if cfg.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", cfg.Metrics)
		}
	})

	return r
}
