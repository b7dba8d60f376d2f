// Package handlers provides HTTP handlers for market event analysis.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/market-confidence/internal/modules/events"
)

// EventRequest is the body of POST /api/analyze-event
type EventRequest struct {
	Event string `json:"event"`
}

// Handler handles event analysis HTTP requests
type Handler struct {
	analyzer *events.Analyzer
	log      zerolog.Logger
}

// NewHandler creates a new event analysis handler
func NewHandler(analyzer *events.Analyzer, log zerolog.Logger) *Handler {
	return &Handler{
		analyzer: analyzer,
		log:      log.With().Str("handler", "events").Logger(),
	}
}

// RegisterRoutes registers event analysis routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analyze-event", h.HandleAnalyzeEvent)
}

// HandleAnalyzeEvent handles POST /api/analyze-event
func (h *Handler) HandleAnalyzeEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	analysis, err := h.analyzer.Analyze(r.Context(), req.Event)
	if errors.Is(err, events.ErrEmptyEvent) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("event", req.Event).Msg("Failed to analyze event")
		h.writeError(w, http.StatusInternalServerError, "Failed to analyze event")
		return
	}

	h.writeJSON(w, http.StatusOK, analysis)
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
