package handler

import (
	"log/slog"
	"net/http"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// PairsHandler serves the classified watchlist, with last quotes when a
// tick cache is wired.
type PairsHandler struct {
	registry *domain.Registry
	ticks    domain.TickCache
	logger   *slog.Logger
}

// NewPairsHandler creates a PairsHandler. ticks may be nil.
func NewPairsHandler(registry *domain.Registry, ticks domain.TickCache, logger *slog.Logger) *PairsHandler {
	return &PairsHandler{
		registry: registry,
		ticks:    ticks,
		logger:   logger,
	}
}

type pairRow struct {
	Symbol    string             `json:"symbol"`
	Type      domain.SymbolClass `json:"type"`
	LastPrice float64            `json:"last_price,omitempty"`
}

// ListPairs returns every tracked pair with its class.
// GET /api/pairs
func (h *PairsHandler) ListPairs(w http.ResponseWriter, r *http.Request) {
	infos := h.registry.Infos()

	var quotes map[string]float64
	if h.ticks != nil {
		var err error
		quotes, err = h.ticks.GetTicks(r.Context(), h.registry.Symbols())
		if err != nil {
			// Quotes are garnish; serve the list anyway.
			h.logger.Warn("tick cache lookup failed", slog.String("error", err.Error()))
		}
	}

	rows := make([]pairRow, len(infos))
	for i, info := range infos {
		rows[i] = pairRow{
			Symbol:    info.Symbol,
			Type:      info.Type,
			LastPrice: quotes[info.Symbol],
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pairs": rows})
}
