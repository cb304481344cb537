package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the synthesis routes on r behind authenticate.
// The legacy routes keep the paths used by the original web client.
func (h *SynthesisHandler) RegisterRoutes(r chi.Router, authenticate func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Route("/api/synthesis", func(r chi.Router) {
			r.Post("/", h.Submit)
			r.Get("/", h.List)
			r.Get("/{taskId}", h.Get)
			r.Delete("/{taskId}", h.Delete)
		})

		r.Post("/synthesize", h.Submit)
		r.Post("/check_status", h.CheckStatus)
		r.Get("/history", h.History)
		r.Delete("/history/{taskId}", h.Delete)
	})
}
