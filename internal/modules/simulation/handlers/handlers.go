// Package handlers provides HTTP handlers for event simulations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/market-confidence/internal/domain"
	"github.com/aristath/market-confidence/internal/modules/simulation"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamTimeout      = 5 * time.Minute
)

// StreamMessage is one frame sent over the simulation stream
type StreamMessage struct {
	Type     string               `json:"type"` // progress, result or error
	Progress *simulation.Progress `json:"progress,omitempty"`
	Result   *simulation.Report   `json:"result,omitempty"`
	Error    string               `json:"error,omitempty"`
	Status   int                  `json:"status,omitempty"`
}

// Handler handles event simulation HTTP requests
type Handler struct {
	service        *simulation.Service
	originPatterns []string
	log            zerolog.Logger
}

// NewHandler creates a new simulation handler.
// originPatterns restricts which browser origins may open the stream.
func NewHandler(service *simulation.Service, originPatterns []string, log zerolog.Logger) *Handler {
	return &Handler{
		service:        service,
		originPatterns: originPatterns,
		log:            log.With().Str("handler", "simulation").Logger(),
	}
}

// HandleEventSimulation handles POST /api/portfolios/event-simulation
func (h *Handler) HandleEventSimulation(w http.ResponseWriter, r *http.Request) {
	var req simulation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if status, msg := validateRequest(req); status != 0 {
		h.writeError(w, status, msg)
		return
	}

	report, err := h.service.RunEventSimulation(r.Context(), req, nil)
	if err != nil {
		status, msg := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("portfolio", req.PortfolioID).Msg("Event simulation failed")
		}
		h.writeError(w, status, msg)
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// HandleEventSimulationStream handles GET /api/portfolios/event-simulation/stream.
// The client sends one request frame; the server answers with progress frames
// followed by a single result or error frame, then closes.
func (h *Handler) HandleEventSimulationStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to accept websocket")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithTimeout(r.Context(), streamTimeout)
	defer cancel()

	var req simulation.Request
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		h.log.Debug().Err(err).Msg("Failed to read simulation request")
		_ = h.send(ctx, conn, StreamMessage{Type: "error", Error: "Invalid request body", Status: http.StatusBadRequest})
		conn.Close(websocket.StatusUnsupportedData, "invalid request")
		return
	}
	if status, msg := validateRequest(req); status != 0 {
		_ = h.send(ctx, conn, StreamMessage{Type: "error", Error: msg, Status: status})
		conn.Close(websocket.StatusPolicyViolation, "invalid request")
		return
	}

	report, err := h.service.RunEventSimulation(ctx, req, func(p simulation.Progress) {
		if err := h.send(ctx, conn, StreamMessage{Type: "progress", Progress: &p}); err != nil {
			h.log.Debug().Err(err).Msg("Client went away during simulation")
			cancel()
		}
	})
	if err != nil {
		status, msg := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("portfolio", req.PortfolioID).Msg("Streamed event simulation failed")
		}
		_ = h.send(ctx, conn, StreamMessage{Type: "error", Error: msg, Status: status})
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	if err := h.send(ctx, conn, StreamMessage{Type: "result", Result: report}); err != nil {
		h.log.Debug().Err(err).Msg("Failed to send simulation result")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg StreamMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}

func validateRequest(req simulation.Request) (int, string) {
	if strings.TrimSpace(req.PortfolioID) == "" {
		return http.StatusBadRequest, "portfolio_id is required"
	}
	if strings.TrimSpace(req.Event) == "" {
		return http.StatusBadRequest, "event is required"
	}
	return 0, ""
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrPortfolioNotFound):
		return http.StatusNotFound, "Portfolio not found"
	case errors.Is(err, domain.ErrPeriodUnresolved):
		return http.StatusBadRequest, "Could not determine event time period"
	case errors.Is(err, simulation.ErrInsufficientData):
		return http.StatusBadRequest, "Insufficient market data for simulation"
	default:
		return http.StatusInternalServerError, "Event simulation failed"
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
