package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/metrics"
)

// Stats summarises one index build.
type Stats struct {
	Listed   int           `json:"listed"`
	Indexed  int           `json:"indexed"`
	Failed   int           `json:"failed"`
	Terms    int           `json:"terms"`
	Duration time.Duration `json:"duration"`
}

type Engine struct {
	store   corpus.Store
	cfg     config.IndexerConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	indexed atomic.Int64
	failed  atomic.Int64
}

func NewEngine(store corpus.Store, cfg config.IndexerConfig) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Engine{
		store:  store,
		cfg:    cfg,
		logger: logger.WithComponent("indexer"),
	}
}

// WithMetrics makes Build report to m.
func (e *Engine) WithMetrics(m *metrics.Metrics) *Engine {
	e.metrics = m
	return e
}

// BuildIndex indexes every entry of a local directory.
func BuildIndex(ctx context.Context, dir string, cfg config.IndexerConfig) (*index.InvertedIndex, Stats, error) {
	store, err := corpus.NewDirStore(dir)
	if err != nil {
		return nil, Stats{}, err
	}
	return NewEngine(store, cfg).Build(ctx)
}

// Build lists the corpus once and indexes each document. A document that
// cannot be read is logged and left out of the index, but still counts
// toward TotalDocuments. Only a failure to list the corpus is returned.
func (e *Engine) Build(ctx context.Context) (*index.InvertedIndex, Stats, error) {
	start := time.Now()
	docs, err := e.store.List(ctx)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("listing corpus: %w", err)
	}
	e.indexed.Store(0)
	e.failed.Store(0)

	idx := index.New(docs)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for ordinal, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			terms, err := e.scanDocument(gctx, doc)
			if err != nil {
				e.failed.Add(1)
				if e.metrics != nil {
					e.metrics.DocsFailedTotal.Inc()
				}
				e.logger.Warn("skipping unreadable document",
					"doc", doc.Location,
					"error", err,
				)
				return nil
			}
			mu.Lock()
			idx.Add(ordinal, maps.Keys(terms))
			mu.Unlock()
			e.indexed.Add(1)
			if e.metrics != nil {
				e.metrics.DocsIndexedTotal.Inc()
			}
			e.logger.Debug("document indexed",
				"doc", doc.Location,
				"distinct_terms", len(terms),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, fmt.Errorf("building index: %w", err)
	}

	stats := Stats{
		Listed:   len(docs),
		Indexed:  int(e.indexed.Load()),
		Failed:   int(e.failed.Load()),
		Terms:    idx.Terms(),
		Duration: time.Since(start),
	}
	if e.metrics != nil {
		e.metrics.IndexTerms.Set(float64(stats.Terms))
		e.metrics.IndexDocuments.Set(float64(stats.Listed))
		e.metrics.IndexBuildDuration.Observe(stats.Duration.Seconds())
	}
	e.logger.Info("index built",
		"index_id", idx.ID(),
		"documents", stats.Listed,
		"indexed", stats.Indexed,
		"failed", stats.Failed,
		"terms", stats.Terms,
		"duration", stats.Duration,
	)
	return idx, stats, nil
}

func (e *Engine) scanDocument(ctx context.Context, doc corpus.Document) (map[string]struct{}, error) {
	rc, err := e.store.Open(ctx, doc)
	if err != nil {
		return nil, corpus.WrapReadError(doc, "open", err)
	}
	defer rc.Close()

	terms := make(map[string]struct{})
	s := tokenizer.NewScanner(rc)
	for term := range s.Terms() {
		terms[term] = struct{}{}
	}
	if err := s.Err(); err != nil {
		return nil, corpus.WrapReadError(doc, "read", err)
	}
	return terms, nil
}
