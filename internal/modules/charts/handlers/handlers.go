package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/market-confidence/internal/domain"
	"github.com/aristath/market-confidence/internal/modules/charts"
	"github.com/aristath/market-confidence/internal/modules/simulation"
)

// Handler serves rendered charts
type Handler struct {
	service *charts.Service
	log     zerolog.Logger
}

// NewHandler creates a new charts handler
func NewHandler(service *charts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "charts").Logger(),
	}
}

// RegisterRoutes registers chart routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/charts", func(r chi.Router) {
		r.Get("/portfolios/{id}/performance", h.HandlePortfolioPerformance)
		r.Post("/event-simulation", h.HandleEventSimulation)
	})
}

// HandlePortfolioPerformance handles GET /api/charts/portfolios/{id}/performance?period=
func (h *Handler) HandlePortfolioPerformance(w http.ResponseWriter, r *http.Request) {
	img, err := h.service.PortfolioPerformance(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("period"))
	if err != nil {
		h.handleError(w, err, "Failed to render portfolio chart")
		return
	}
	h.writePNG(w, img)
}

// HandleEventSimulation handles POST /api/charts/event-simulation
func (h *Handler) HandleEventSimulation(w http.ResponseWriter, r *http.Request) {
	var req simulation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.PortfolioID) == "" || strings.TrimSpace(req.Event) == "" {
		h.writeError(w, http.StatusBadRequest, "portfolio_id and event are required")
		return
	}

	img, err := h.service.EventSimulation(r.Context(), req)
	if err != nil {
		h.handleError(w, err, "Failed to render event simulation chart")
		return
	}
	h.writePNG(w, img)
}

func (h *Handler) handleError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrPortfolioNotFound):
		h.writeError(w, http.StatusNotFound, "Portfolio not found")
	case errors.Is(err, charts.ErrNoData):
		h.writeError(w, http.StatusNotFound, "No price data to chart")
	case errors.Is(err, domain.ErrPeriodUnresolved):
		h.writeError(w, http.StatusBadRequest, "Could not determine event time period")
	case errors.Is(err, simulation.ErrInsufficientData):
		h.writeError(w, http.StatusBadRequest, "Insufficient market data for simulation")
	default:
		h.log.Error().Err(err).Msg(message)
		h.writeError(w, http.StatusInternalServerError, message)
	}
}

func (h *Handler) writePNG(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img); err != nil {
		h.log.Debug().Err(err).Msg("Failed to write chart")
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
