// Package analytics records one event per executed query and fans the
// events out to sinks: an in-memory aggregator behind /api/v1/analytics, a
// Kafka topic and a Postgres table.
package analytics

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

// Source says which surface ran the query.
type Source string

const (
	SourceCLI  Source = "cli"
	SourceHTTP Source = "http"
)

type SearchEvent struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	Source         Source    `json:"source"`
	Query          string    `json:"query"`
	Term           string    `json:"term"`
	IndexID        string    `json:"index_id"`
	TotalDocuments int       `json:"total_documents"`
	Candidates     int       `json:"candidates"`
	Returned       int       `json:"returned"`
	TopDocument    string    `json:"top_document,omitempty"`
	TopScore       float64   `json:"top_score"`
	LatencyMs      int64     `json:"latency_ms"`
	CacheHit       bool      `json:"cache_hit"`
	RequestID      string    `json:"request_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewSearchEvent stamps a fresh ID and timestamp and derives the event type
// from the candidate count.
func NewSearchEvent(source Source, query, term string, candidates int) SearchEvent {
	typ := EventSearch
	if candidates == 0 {
		typ = EventZeroResult
	}
	return SearchEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		Source:     source,
		Query:      query,
		Term:       term,
		Candidates: candidates,
		Timestamp:  time.Now().UTC(),
	}
}
