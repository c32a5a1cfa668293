// Package service is the query path shared by the HTTP handler and the
// interactive console: cache lookup, TF-IDF execution, metrics and one
// analytics event per query.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/metrics"
)

// Executor runs a single-term query against one index build.
type Executor interface {
	Execute(ctx context.Context, query string) (*executor.SearchResult, error)
	Index() *index.InvertedIndex
}

// Outcome describes how a query was answered.
type Outcome struct {
	CacheHit bool
	Latency  time.Duration
}

type Service struct {
	exec      Executor
	cache     *cache.QueryCache
	collector *analytics.Collector
	metrics   *metrics.Metrics
	source    analytics.Source
	logger    *slog.Logger
}

// New wires the query path. cache, collector and m may be nil.
func New(exec Executor, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics, source analytics.Source) *Service {
	return &Service{
		exec:      exec,
		cache:     queryCache,
		collector: collector,
		metrics:   m,
		source:    source,
		logger:    logger.WithComponent("search-service"),
	}
}

// Index returns the index queries run against.
func (s *Service) Index() *index.InvertedIndex {
	return s.exec.Index()
}

// Search answers query. The returned result is owned by the caller.
func (s *Service) Search(ctx context.Context, query string) (*executor.SearchResult, Outcome, error) {
	start := time.Now()
	if query == "" {
		s.recordError()
		return nil, Outcome{}, apperrors.ErrEmptyQuery
	}
	term := tokenizer.Normalize(query)
	idx := s.exec.Index()

	var (
		result   *executor.SearchResult
		cacheHit bool
		err      error
	)
	if s.cache != nil {
		result, cacheHit, err = s.cache.GetOrCompute(ctx, idx.ID(), term, func() (*executor.SearchResult, error) {
			return s.exec.Execute(ctx, query)
		})
	} else {
		result, err = s.exec.Execute(ctx, query)
	}
	if err != nil {
		s.recordError()
		if !errors.Is(err, context.Canceled) {
			logger.FromContext(ctx).Error("search failed", "query", query, "error", err)
		}
		return nil, Outcome{}, err
	}

	out := *result
	out.Query = query
	outcome := Outcome{CacheHit: cacheHit, Latency: time.Since(start)}
	s.recordSuccess(&out, outcome)
	s.track(ctx, idx, &out, outcome)
	return &out, outcome, nil
}

func (s *Service) recordError() {
	if s.metrics != nil {
		s.metrics.SearchQueriesTotal.WithLabelValues(metrics.OutcomeError).Inc()
	}
}

func (s *Service) recordSuccess(result *executor.SearchResult, outcome Outcome) {
	if s.metrics == nil {
		return
	}
	label := metrics.OutcomeHit
	switch {
	case outcome.CacheHit:
		label = metrics.OutcomeCached
	case result.TotalHits == 0:
		label = metrics.OutcomeZeroResult
	}
	cacheStatus := "disabled"
	if s.cache != nil {
		cacheStatus = "miss"
		if outcome.CacheHit {
			cacheStatus = "hit"
		}
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(label).Inc()
	s.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(outcome.Latency.Seconds())
	s.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
}

func (s *Service) track(ctx context.Context, idx *index.InvertedIndex, result *executor.SearchResult, outcome Outcome) {
	if s.collector == nil {
		return
	}
	event := analytics.NewSearchEvent(s.source, result.Query, result.Term, result.TotalHits)
	event.IndexID = idx.ID()
	event.TotalDocuments = idx.TotalDocuments()
	event.Returned = len(result.Results)
	if len(result.Results) > 0 {
		event.TopDocument = result.Results[0].Name
		event.TopScore = result.Results[0].Score
	}
	event.LatencyMs = outcome.Latency.Milliseconds()
	event.CacheHit = outcome.CacheHit
	event.RequestID = logger.RequestID(ctx)
	s.collector.Track(event)
}
