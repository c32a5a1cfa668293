// Package console runs the interactive session: read a corpus location,
// build the index, then answer one query per line until an empty line.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/metrics"
)

const (
	locationPrompt = "Enter the corpus directory path: "
	queryPrompt    = "Enter the term query: "
)

type Session struct {
	in        *bufio.Reader
	out       io.Writer
	cfg       *config.Config
	collector *analytics.Collector
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewSession(in io.Reader, out io.Writer, cfg *config.Config) *Session {
	return &Session{
		in:     bufio.NewReader(in),
		out:    out,
		cfg:    cfg,
		logger: logger.WithComponent("console"),
	}
}

// WithCollector sends one analytics event per query to c.
func (s *Session) WithCollector(c *analytics.Collector) *Session {
	s.collector = c
	return s
}

// WithMetrics reports index and query metrics to m.
func (s *Session) WithMetrics(m *metrics.Metrics) *Session {
	s.metrics = m
	return s
}

// Run drives the whole session. The corpus location comes from the config
// or, when that is empty, from the first input line. An unusable location
// is reported and returned as an error wrapping ErrInvalidCorpus; reaching
// an empty query line or the end of input returns nil.
func (s *Session) Run(ctx context.Context) error {
	location := s.cfg.Corpus.Location
	if location == "" {
		fmt.Fprint(s.out, locationPrompt)
		line, ok, err := s.readLine()
		if err != nil {
			return err
		}
		if !ok || line == "" {
			fmt.Fprintln(s.out, "No corpus location given.")
			return fmt.Errorf("%w: no location given", apperrors.ErrInvalidCorpus)
		}
		location = line
	}

	store, err := corpus.Open(ctx, location, s.cfg.Corpus.S3)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid corpus location %q: %v\n", location, err)
		return err
	}
	idx, _, err := indexer.NewEngine(store, s.cfg.Indexer).WithMetrics(s.metrics).Build(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Could not index %q: %v\n", location, err)
		return err
	}

	svc := service.New(executor.New(idx, store, s.cfg.Search), nil, s.collector, s.metrics, analytics.SourceCLI)
	for {
		fmt.Fprint(s.out, queryPrompt)
		query, ok, err := s.readLine()
		if err != nil {
			return err
		}
		if !ok || query == "" {
			return nil
		}
		result, _, err := svc.Search(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(s.out, "Search failed: %v\n", err)
			continue
		}
		s.render(result)
	}
}

// render prints a header, one line per ranked document, a blank line and
// the shown/candidates summary.
func (s *Session) render(result *executor.SearchResult) {
	fmt.Fprintf(s.out, "Printing the %d documents most relevant to the query...\n\n", executor.TopK)
	for _, doc := range result.Results {
		fmt.Fprintf(s.out, "%s with a TF-IDF of %.4f\n", doc.Name, doc.Score)
	}
	fmt.Fprintln(s.out)
	fmt.Fprintf(s.out, "%d out of %d documents listed.\n", len(result.Results), result.TotalHits)
}

// readLine returns the next line without its terminator. ok is false at end
// of input with nothing read.
func (s *Session) readLine() (line string, ok bool, err error) {
	line, err = s.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, fmt.Errorf("reading input: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", false, nil
	}
	return strings.TrimRight(line, "\r\n"), true, nil
}
