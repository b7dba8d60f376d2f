package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers simulation routes on a router already scoped to /portfolios
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/event-simulation", func(r chi.Router) {
		r.Post("/", h.HandleEventSimulation)
		r.Get("/stream", h.HandleEventSimulationStream)
	})
}
