// Package store persists search events and periodic aggregate snapshots in
// PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS search_events (
    id              UUID PRIMARY KEY,
    type            TEXT NOT NULL,
    source          TEXT NOT NULL,
    query           TEXT NOT NULL,
    term            TEXT NOT NULL,
    index_id        TEXT NOT NULL,
    total_documents INTEGER NOT NULL,
    candidates      INTEGER NOT NULL,
    returned        INTEGER NOT NULL,
    top_document    TEXT,
    top_score       DOUBLE PRECISION NOT NULL,
    latency_ms      BIGINT NOT NULL,
    cache_hit       BOOLEAN NOT NULL,
    request_id      TEXT,
    created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS search_events_term_idx ON search_events (term);
CREATE TABLE IF NOT EXISTS analytics_snapshots (
    id          BIGSERIAL PRIMARY KEY,
    data        JSONB NOT NULL,
    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const insertEvent = `
INSERT INTO search_events (
    id, type, source, query, term, index_id, total_documents, candidates,
    returned, top_document, top_score, latency_ms, cache_hit, request_id, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (id) DO NOTHING`

// Store is an analytics.Sink backed by PostgreSQL.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: logger.WithComponent("analytics-store"),
	}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating analytics schema: %w", err)
	}
	return nil
}

func (s *Store) Name() string { return "postgres" }

// Write inserts a batch of events in one transaction.
func (s *Store) Write(ctx context.Context, events []analytics.SearchEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertEvent)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range events {
			_, err := stmt.ExecContext(ctx,
				e.ID, string(e.Type), string(e.Source), e.Query, e.Term, e.IndexID,
				e.TotalDocuments, e.Candidates, e.Returned, nullString(e.TopDocument),
				e.TopScore, e.LatencyMs, e.CacheHit, nullString(e.RequestID), e.Timestamp,
			)
			if err != nil {
				return fmt.Errorf("inserting search event %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// TopTerms returns the most searched terms across every stored event.
func (s *Store) TopTerms(ctx context.Context, limit int) ([]analytics.TermCount, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT term, COUNT(*) AS n FROM search_events GROUP BY term ORDER BY n DESC, term LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying top terms: %w", err)
	}
	defer rows.Close()

	var out []analytics.TermCount
	for rows.Next() {
		var tc analytics.TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scanning top term row: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

const (
	insertSnapshot = `INSERT INTO analytics_snapshots (data) VALUES ($1)`
	latestSnapshot = `SELECT data FROM analytics_snapshots ORDER BY captured_at DESC, id DESC LIMIT 1`
)

// SaveSnapshot stores stats as JSONB, stamped by the database clock.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	doc, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if _, err := s.db.DB.ExecContext(ctx, insertSnapshot, doc); err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	s.logger.Debug("snapshot stored", "total_searches", stats.TotalSearches)
	return nil
}

// LatestSnapshot returns the newest stored snapshot, or nil when none has
// been taken yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error) {
	var doc []byte
	switch err := s.db.DB.QueryRowContext(ctx, latestSnapshot).Scan(&doc); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("loading latest snapshot: %w", err)
	}
	stats := new(analytics.AggregatedStats)
	if err := json.Unmarshal(doc, stats); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return stats, nil
}

// StartPeriodicSave snapshots agg every interval in the background. One
// last snapshot is written after ctx ends so a clean shutdown loses nothing.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	s.logger.Info("snapshotting aggregate", "interval", interval)
	go s.snapshotLoop(ctx, agg, interval)
}

func (s *Store) snapshotLoop(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
				s.logger.Error("snapshot failed", "error", err)
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			err := s.SaveSnapshot(final, agg.Stats())
			cancel()
			if err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			return
		}
	}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
