package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/tracing"
)

type searchResponse struct {
	Query     string             `json:"query"`
	Term      string             `json:"term"`
	TotalHits int                `json:"total_hits"`
	IDF       float64            `json:"idf"`
	Results   []ranker.ScoredDoc `json:"results"`
	CacheHit  bool               `json:"cache_hit"`
	LatencyMs int64              `json:"latency_ms"`
}

// cacheStatsResponse reports this process's cache counters. Breaker is
// "open" while Redis is being bypassed after repeated failures.
type cacheStatsResponse struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Total   int64   `json:"total"`
	HitRate float64 `json:"hit_rate"`
	Breaker string  `json:"breaker"`
}

type Handler struct {
	search *service.Service
	cache  *cache.QueryCache
	stats  indexer.Stats
	logger *slog.Logger
}

func New(search *service.Service, queryCache *cache.QueryCache, stats indexer.Stats) *Handler {
	return &Handler{
		search: search,
		cache:  queryCache,
		stats:  stats,
		logger: logger.WithComponent("search-handler"),
	}
}

// Search handles GET /api/v1/search?q=term.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "search", logger.RequestID(r.Context()))
	defer func() {
		span.End()
		span.Log(h.logger)
	}()

	query := r.URL.Query().Get("q")
	span.SetAttr("query", query)
	result, outcome, err := h.search.Search(ctx, query)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		message := "search failed"
		if status == http.StatusBadRequest {
			message = "query parameter 'q' is required"
		}
		h.writeError(w, status, message)
		return
	}

	logger.FromContext(ctx).Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", outcome.CacheHit,
		"latency_ms", outcome.Latency.Milliseconds(),
	)
	results := result.Results
	if results == nil {
		results = []ranker.ScoredDoc{}
	}
	h.writeJSON(w, http.StatusOK, searchResponse{
		Query:     result.Query,
		Term:      result.Term,
		TotalHits: result.TotalHits,
		IDF:       result.IDF,
		Results:   results,
		CacheHit:  outcome.CacheHit,
		LatencyMs: outcome.Latency.Milliseconds(),
	})
}

// IndexStats handles GET /api/v1/index/stats.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	idx := h.search.Index()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"index_id":          idx.ID(),
		"total_documents":   idx.TotalDocuments(),
		"indexed":           h.stats.Indexed,
		"failed":            h.stats.Failed,
		"terms":             idx.Terms(),
		"build_duration_ms": h.stats.Duration.Milliseconds(),
	})
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	resp := cacheStatsResponse{Breaker: h.cache.BreakerState().String()}
	resp.Hits, resp.Misses = h.cache.Stats()
	resp.Total = resp.Hits + resp.Misses
	if resp.Total > 0 {
		resp.HitRate = float64(resp.Hits) / float64(resp.Total)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
