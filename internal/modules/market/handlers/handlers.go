// Package handlers provides HTTP handlers for asset search and market data.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/market-confidence/internal/clients/yahoo"
	"github.com/aristath/market-confidence/internal/domain"
	"github.com/aristath/market-confidence/internal/modules/market"
)

// Handler handles market data HTTP requests
type Handler struct {
	catalog  *market.Catalog
	provider domain.PriceHistoryProvider
	log      zerolog.Logger
}

// NewHandler creates a new market data handler
func NewHandler(catalog *market.Catalog, provider domain.PriceHistoryProvider, log zerolog.Logger) *Handler {
	return &Handler{
		catalog:  catalog,
		provider: provider,
		log:      log.With().Str("handler", "market").Logger(),
	}
}

// RegisterRoutes registers market data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/market-data", h.HandleMarketData)
	r.Get("/search-assets", h.HandleSearchAssets)
	r.Get("/asset/{symbol}", h.HandleAssetData)
}

// HandleMarketData handles GET /api/market-data
// Returns MSCI World daily bars for ?period= or, when both are given, ?start=&end=
func (h *Handler) HandleMarketData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var req domain.HistoryRequest
	if start, end := q.Get("start"), q.Get("end"); start != "" && end != "" {
		startDate, err := domain.ParseDate(start)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid start date, expected YYYY-MM-DD")
			return
		}
		endDate, err := domain.ParseDate(end)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid end date, expected YYYY-MM-DD")
			return
		}
		req = domain.HistoryRequest{Start: startDate, End: endDate}
	} else {
		period, ok := periodParam(r)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "Invalid period")
			return
		}
		req = domain.HistoryRequest{Period: period}
	}

	h.writeJSON(w, http.StatusOK, h.provider.GetHistory(r.Context(), domain.MSCIWorldSymbol, req))
}

// HandleSearchAssets handles GET /api/search-assets?query=
func (h *Handler) HandleSearchAssets(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("query") {
		h.writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	h.writeJSON(w, http.StatusOK, h.catalog.Search(r.URL.Query().Get("query")))
}

// HandleAssetData handles GET /api/asset/{symbol}?period=
func (h *Handler) HandleAssetData(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if symbol == "" {
		h.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	period, ok := periodParam(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "Invalid period")
		return
	}

	h.writeJSON(w, http.StatusOK, h.provider.GetHistory(r.Context(), symbol, domain.HistoryRequest{Period: period}))
}

func periodParam(r *http.Request) (string, bool) {
	period := r.URL.Query().Get("period")
	if period == "" {
		return yahoo.DefaultPeriod, true
	}
	return period, yahoo.ValidPeriods[period]
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
