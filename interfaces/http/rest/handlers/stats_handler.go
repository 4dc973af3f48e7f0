package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"thoughtnet/application/ports"
	apperrors "thoughtnet/pkg/errors"
)

// StatsHandler handles GET /api/stats.
type StatsHandler struct {
	repo   ports.ThoughtRepository
	logger *zap.Logger
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo ports.ThoughtRepository, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{repo: repo, logger: logger}
}

// GetStats returns the network totals.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetNetworkStats(r.Context())
	if err != nil {
		h.logger.Error("Failed to compute stats", zap.Error(err))
		respondAppError(w, apperrors.NewInternalError("Failed to get stats"))
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
