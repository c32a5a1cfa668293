package analytics

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches    int64       `json:"total_searches"`
	CacheHits        int64       `json:"cache_hits"`
	CacheMisses      int64       `json:"cache_misses"`
	ZeroResultCount  int64       `json:"zero_result_count"`
	AvgLatencyMs     float64     `json:"avg_latency_ms"`
	P50LatencyMs     int64       `json:"p50_latency_ms"`
	P95LatencyMs     int64       `json:"p95_latency_ms"`
	P99LatencyMs     int64       `json:"p99_latency_ms"`
	TopTerms         []TermCount `json:"top_terms"`
	ZeroResultTerms  []TermCount `json:"zero_result_terms"`
	QueriesPerMinute float64     `json:"queries_per_minute"`
}

type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Aggregator keeps running totals in memory. It is a Sink, so the collector
// feeds it alongside the external sinks.
type Aggregator struct {
	mu              sync.RWMutex
	totalSearches   int64
	cacheHits       int64
	cacheMisses     int64
	zeroResults     int64
	latencies       []int64
	next            int
	termCounts      map[string]int64
	zeroResultTerms map[string]int64
	startTime       time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:       make([]int64, 0, 1024),
		termCounts:      make(map[string]int64),
		zeroResultTerms: make(map[string]int64),
		startTime:       time.Now(),
	}
}

func (a *Aggregator) Name() string { return "memory" }

func (a *Aggregator) Write(_ context.Context, events []SearchEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, event := range events {
		a.record(event)
	}
	return nil
}

func (a *Aggregator) record(event SearchEvent) {
	a.totalSearches++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	a.termCounts[event.Term]++
	if event.Candidates == 0 {
		a.zeroResults++
		a.zeroResultTerms[event.Term]++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
}

// Stats snapshots the totals. Latency figures cover the most recent
// maxLatencySamples searches.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := AggregatedStats{
		TotalSearches:   a.totalSearches,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
		TopTerms:        topN(a.termCounts, 10),
		ZeroResultTerms: topN(a.zeroResultTerms, 10),
	}
	if n := len(a.latencies); n > 0 {
		window := slices.Sorted(slices.Values(a.latencies))
		var total int64
		for _, ms := range window {
			total += ms
		}
		out.AvgLatencyMs = float64(total) / float64(n)
		out.P50LatencyMs = rank(window, 50)
		out.P95LatencyMs = rank(window, 95)
		out.P99LatencyMs = rank(window, 99)
	}
	if mins := time.Since(a.startTime).Minutes(); mins > 0 {
		out.QueriesPerMinute = float64(a.totalSearches) / mins
	}
	return out
}

// rank picks the element pct percent of the way through a non-empty
// ascending slice.
func rank(window []int64, pct int) int64 {
	return window[min(pct*len(window)/100, len(window)-1)]
}

// topN returns the n most frequent terms, ties broken alphabetically.
func topN(counts map[string]int64, n int) []TermCount {
	result := make([]TermCount, 0, len(counts))
	for term, count := range counts {
		result = append(result, TermCount{Term: term, Count: count})
	}
	slices.SortFunc(result, func(a, b TermCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Term, b.Term)
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
