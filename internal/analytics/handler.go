package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
)

type statsResponse struct {
	AggregatedStats
	DroppedEvents int64 `json:"dropped_events"`
}

type Handler struct {
	aggregator *Aggregator
	collector  *Collector
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     logger.WithComponent("analytics-handler"),
	}
}

// WithCollector reports c's dropped-event count alongside the aggregate.
func (h *Handler) WithCollector(c *Collector) *Handler {
	h.collector = c
	return h
}

// Stats serves the in-memory aggregate as JSON.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	resp := statsResponse{AggregatedStats: h.aggregator.Stats()}
	if h.collector != nil {
		resp.DroppedEvents = h.collector.Dropped()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
