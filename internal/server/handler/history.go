package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// HistorySource serves recent emitted signals. The ledger backs it in full
// mode; server-only processes read the durable bus stream instead.
type HistorySource interface {
	RecentSignals(ctx context.Context, limit int) ([]domain.Signal, error)
}

// HistoryHandler serves the signal history endpoint.
type HistoryHandler struct {
	source HistorySource
	logger *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(source HistorySource, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		source: source,
		logger: logger,
	}
}

// ListHistory returns the newest signals, oldest first. ?limit= caps the
// page, default 50, max 500.
// GET /api/signals/history
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50, 500)

	signals, err := h.source.RecentSignals(r.Context(), limit)
	if err != nil {
		h.logger.Error("history lookup failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if signals == nil {
		signals = []domain.Signal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"signals": signals})
}
