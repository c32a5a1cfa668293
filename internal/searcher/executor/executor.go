package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/tracing"
)

// TopK is the number of ranked documents a query surfaces.
const TopK = 10

type SearchResult struct {
	Query     string             `json:"query"`
	Term      string             `json:"term"`
	TotalHits int                `json:"total_hits"`
	IDF       float64            `json:"idf"`
	Results   []ranker.ScoredDoc `json:"results"`
}

type Executor struct {
	idx     *index.InvertedIndex
	store   corpus.Store
	workers int
	logger  *slog.Logger
}

func New(idx *index.InvertedIndex, store corpus.Store, cfg config.SearchConfig) *Executor {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		idx:     idx,
		store:   store,
		workers: workers,
		logger:  logger.WithComponent("query-executor"),
	}
}

// Index returns the index queries run against.
func (e *Executor) Index() *index.InvertedIndex {
	return e.idx
}

// Execute scores every document containing the query term with TF-IDF and
// returns the best TopK. Term frequencies come from re-reading each
// candidate; a candidate that cannot be read scores 0. The empty query is
// rejected with ErrEmptyQuery before any lookup.
func (e *Executor) Execute(ctx context.Context, query string) (*SearchResult, error) {
	if query == "" {
		return nil, apperrors.ErrEmptyQuery
	}
	ctx, span := tracing.StartChildSpan(ctx, "tfidf.execute")
	defer span.End()

	term := tokenizer.Normalize(query)
	candidates := e.idx.Lookup(term)
	idf := ranker.IDF(e.idx.TotalDocuments(), len(candidates))
	span.SetAttr("term", term)
	span.SetAttr("candidates", len(candidates))

	scored := make([]ranker.ScoredDoc, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, doc := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tf, err := e.termFrequency(gctx, doc, term)
			if err != nil {
				e.logger.Warn("scoring unreadable document as zero",
					"doc", doc.Location,
					"term", term,
					"error", err,
				)
				tf = 0
			}
			scored[i] = ranker.ScoredDoc{
				Name:          doc.Name,
				Location:      doc.Location,
				TermFrequency: tf,
				Score:         ranker.TFIDF(tf, idf),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring term %q: %w", term, err)
	}

	ranked := ranker.Rank(scored, TopK)
	e.logger.Info("query executed",
		"query", query,
		"term", term,
		"total_docs", e.idx.TotalDocuments(),
		"candidates", len(candidates),
		"idf", idf,
		"results", len(ranked),
	)
	return &SearchResult{
		Query:     query,
		Term:      term,
		TotalHits: len(candidates),
		IDF:       idf,
		Results:   ranked,
	}, nil
}

func (e *Executor) termFrequency(ctx context.Context, doc corpus.Document, term string) (int, error) {
	rc, err := e.store.Open(ctx, doc)
	if err != nil {
		return 0, corpus.WrapReadError(doc, "open", err)
	}
	defer rc.Close()
	tf, err := CountTerm(rc, term)
	if err != nil {
		return 0, corpus.WrapReadError(doc, "read", err)
	}
	return tf, nil
}

// CountTerm tokenizes r and counts the tokens equal to term. term must
// already be normalised.
func CountTerm(r io.Reader, term string) (int, error) {
	count := 0
	s := tokenizer.NewScanner(r)
	for token := range s.Terms() {
		if token == term {
			count++
		}
	}
	if err := s.Err(); err != nil {
		return 0, err
	}
	return count, nil
}
