package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 1000
)

// History is the read side of Store used by HistoryHandler.
type History interface {
	TopTerms(ctx context.Context, limit int) ([]analytics.TermCount, error)
	LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error)
}

// HistoryHandler serves persisted analytics, which outlive the in-memory
// aggregator across restarts.
type HistoryHandler struct {
	history History
	logger  *slog.Logger
}

func NewHistoryHandler(h History) *HistoryHandler {
	return &HistoryHandler{
		history: h,
		logger:  logger.WithComponent("analytics-history"),
	}
}

type historyResponse struct {
	TopTerms       []analytics.TermCount      `json:"top_terms"`
	LatestSnapshot *analytics.AggregatedStats `json:"latest_snapshot"`
}

// Serve handles GET /api/v1/analytics/history?limit=N.
func (h *HistoryHandler) Serve(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": err.Error()})
		return
	}
	top, err := h.history.TopTerms(r.Context(), limit)
	if err != nil {
		h.logger.Error("loading top terms failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "analytics history unavailable"})
		return
	}
	latest, err := h.history.LatestSnapshot(r.Context())
	if err != nil {
		h.logger.Error("loading latest snapshot failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "analytics history unavailable"})
		return
	}
	if top == nil {
		top = []analytics.TermCount{}
	}
	writeJSON(w, http.StatusOK, historyResponse{TopTerms: top, LatestSnapshot: latest})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxHistoryLimit {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput,
			"limit must be an integer between 1 and %d", maxHistoryLimit)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
