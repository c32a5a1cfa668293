package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/middleware"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"d1.txt": "the cat sat",
		"d2.txt": "the cat ran",
		"d3.txt": "a dog barked",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	store, err := corpus.NewDirStore(dir)
	require.NoError(t, err)
	idx, stats, err := indexer.NewEngine(store, config.IndexerConfig{Workers: 2}).Build(context.Background())
	require.NoError(t, err)

	svc := service.New(executor.New(idx, store, config.SearchConfig{Workers: 2}), nil, nil, nil, analytics.SourceHTTP)
	h := New(svc, nil, stats)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	srv := httptest.NewServer(middleware.RequestID(mux))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, into any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	return resp
}

func TestSearchReturnsRankedResults(t *testing.T) {
	srv := newServer(t)

	var body searchResponse
	resp := getJSON(t, srv.URL+"/api/v1/search?q=cat", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	assert.Equal(t, "cat", body.Term)
	assert.Equal(t, 2, body.TotalHits)
	require.Len(t, body.Results, 2)
	assert.InDelta(t, 0.4055, body.Results[0].Score, 1e-4)
	assert.False(t, body.CacheHit)
}

func TestSearchUnknownTermReturnsEmptyList(t *testing.T) {
	srv := newServer(t)

	var raw map[string]json.RawMessage
	resp := getJSON(t, srv.URL+"/api/v1/search?q=zebra", &raw)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw["results"]))
}

func TestSearchWithoutQueryIsBadRequest(t *testing.T) {
	srv := newServer(t)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/api/v1/search", &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "'q'")
}

func TestIndexStats(t *testing.T) {
	srv := newServer(t)

	var body map[string]any
	resp := getJSON(t, srv.URL+"/api/v1/index/stats", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, body["total_documents"])
	assert.EqualValues(t, 3, body["indexed"])
	assert.NotEmpty(t, body["index_id"])
}

func TestCacheEndpointsWhenDisabled(t *testing.T) {
	srv := newServer(t)

	var stats map[string]string
	getJSON(t, srv.URL+"/api/v1/cache/stats", &stats)
	assert.Equal(t, "disabled", stats["status"])

	resp, err := http.Post(srv.URL+"/api/v1/cache/invalidate", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

type downBackend struct{}

func (downBackend) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (downBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (downBackend) FlushByPattern(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestCacheStatsReportsBreakerState(t *testing.T) {
	queryCache := cache.New(downBackend{}, config.RedisConfig{CacheTTL: time.Minute}, nil)
	h := New(nil, queryCache, indexer.Stats{})

	var body map[string]any
	rec := httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "closed", body["breaker"])

	for i := 0; i < 5; i++ {
		_, ok := queryCache.Get(context.Background(), "idx", "cat")
		assert.False(t, ok)
	}

	rec = httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "open", body["breaker"])
	assert.EqualValues(t, 5, body["misses"])
}
