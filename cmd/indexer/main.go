// Command indexer builds the index over a corpus once and prints a JSON
// report: build statistics, the most widespread terms and, for any terms
// named with -terms, their document frequency and IDF.
//
// Usage:
//
//	go run ./cmd/indexer -corpus ./docs [-top 20] [-terms cat,dog]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
)

type termReport struct {
	Term    string  `json:"term"`
	DocFreq int     `json:"doc_freq"`
	IDF     float64 `json:"idf"`
}

type report struct {
	IndexID        string           `json:"index_id"`
	Location       string           `json:"location"`
	TotalDocuments int              `json:"total_documents"`
	Build          indexer.Stats    `json:"build"`
	TopTerms       []index.TermFreq `json:"top_terms"`
	Terms          []termReport     `json:"terms,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	corpusLocation := flag.String("corpus", "", "corpus directory or s3://bucket/prefix")
	top := flag.Int("top", 20, "number of most widespread terms to list")
	terms := flag.String("terms", "", "comma-separated terms to report document frequency and IDF for")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpusLocation != "" {
		cfg.Corpus.Location = *corpusLocation
	}
	logger.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := corpus.Open(ctx, cfg.Corpus.Location, cfg.Corpus.S3)
	if err != nil {
		slog.Error("invalid corpus location", "location", cfg.Corpus.Location, "error", err)
		os.Exit(1)
	}
	idx, stats, err := indexer.NewEngine(store, cfg.Indexer).Build(ctx)
	if err != nil {
		slog.Error("failed to build index", "error", err)
		os.Exit(1)
	}

	out := report{
		IndexID:        idx.ID(),
		Location:       cfg.Corpus.Location,
		TotalDocuments: idx.TotalDocuments(),
		Build:          stats,
		TopTerms:       idx.TopTerms(*top),
	}
	for _, term := range parseTerms(*terms) {
		df := idx.DocFreq(term)
		out.Terms = append(out.Terms, termReport{
			Term:    term,
			DocFreq: df,
			IDF:     ranker.IDF(idx.TotalDocuments(), df),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		slog.Error("failed to write report", "error", err)
		os.Exit(1)
	}
}

// parseTerms splits a comma-separated -terms value into normalized terms,
// ignoring surrounding whitespace and empty pieces.
func parseTerms(list string) []string {
	var out []string
	for _, raw := range strings.Split(list, ",") {
		if term := tokenizer.Normalize(strings.TrimSpace(raw)); term != "" {
			out = append(out, term)
		}
	}
	return out
}
