// Command loadtest drives GET /api/v1/search with a fixed set of terms from
// concurrent workers and prints throughput, latency percentiles, cache hit
// rate and the status-code breakdown.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -concurrency 20 -duration 1m
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"maps"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultTerms = "the,search,index,document,term,frequency,corpus,query,rank,cat,zebra"

// tally accumulates outcomes across workers.
type tally struct {
	total     atomic.Int64
	success   atomic.Int64
	errors    atomic.Int64
	cacheHits atomic.Int64
	zeroHits  atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func newTally() *tally {
	return &tally{statusCodes: make(map[int]int64)}
}

type searchResponse struct {
	TotalHits int  `json:"total_hits"`
	CacheHit  bool `json:"cache_hit"`
}

func (s *tally) record(d time.Duration, status int, body *searchResponse, err error) {
	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
		return
	}
	if status == http.StatusOK {
		s.success.Add(1)
		if body != nil && body.CacheHit {
			s.cacheHits.Add(1)
		}
		if body != nil && body.TotalHits == 0 {
			s.zeroHits.Add(1)
		}
	} else {
		s.errors.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.statusCodes[status]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "searcher base URL")
	concurrency := flag.Int("concurrency", 10, "parallel workers")
	duration := flag.Duration("duration", 30*time.Second, "how long to keep sending queries")
	termList := flag.String("terms", defaultTerms, "comma-separated query terms to cycle through")
	flag.Parse()

	terms := strings.Split(*termList, ",")
	fmt.Printf("querying %s with %d workers for %s over %d terms\n\n", *baseURL, *concurrency, *duration, len(terms))

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()
	stats := run(ctx, *baseURL, *concurrency, terms)
	if !printReport(stats, *duration) {
		os.Exit(1)
	}
}

func run(ctx context.Context, baseURL string, concurrency int, terms []string) *tally {
	stats := newTally()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	var g errgroup.Group
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				term := terms[i%len(terms)]
				searchURL := baseURL + "/api/v1/search?q=" + url.QueryEscape(term)
				start := time.Now()
				status, body, err := search(ctx, client, searchURL)
				if ctx.Err() != nil {
					return nil
				}
				stats.record(time.Since(start), status, body, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return stats
}

func search(ctx context.Context, client *http.Client, rawURL string) (int, *searchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil, nil
	}
	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return resp.StatusCode, nil, fmt.Errorf("decoding response: %w", err)
	}
	return resp.StatusCode, &body, nil
}

// printReport writes the summary to stdout and reports whether any request
// completed.
func printReport(t *tally, elapsed time.Duration) bool {
	total, ok, failed := t.total.Load(), t.success.Load(), t.errors.Load()
	if total == 0 {
		fmt.Println("no requests completed; is the searcher running?")
		return false
	}

	t.mu.Lock()
	latencies := slices.Sorted(slices.Values(t.latencies))
	codes := maps.Clone(t.statusCodes)
	t.mu.Unlock()

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintf(tw, "requests\t%d\n", total)
	fmt.Fprintf(tw, "ok\t%d\n", ok)
	fmt.Fprintf(tw, "failed\t%d (%.2f%%)\n", failed, pct(failed, total))
	fmt.Fprintf(tw, "throughput\t%.1f req/s\n", float64(total)/elapsed.Seconds())
	if ok > 0 {
		fmt.Fprintf(tw, "cache hits\t%.2f%%\n", pct(t.cacheHits.Load(), ok))
		fmt.Fprintf(tw, "zero results\t%d\n", t.zeroHits.Load())
	}
	if n := len(latencies); n > 0 {
		var sum time.Duration
		for _, d := range latencies {
			sum += d
		}
		fmt.Fprintf(tw, "latency min/avg/max\t%s / %s / %s\n", latencies[0], sum/time.Duration(n), latencies[n-1])
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Fprintf(tw, "latency p%.0f\t%s\n", p, quantile(latencies, p))
		}
	}
	for _, code := range slices.Sorted(maps.Keys(codes)) {
		fmt.Fprintf(tw, "status %d\t%d\n", code, codes[code])
	}
	return true
}

func pct(part, whole int64) float64 {
	return float64(part) / float64(whole) * 100
}

// quantile uses the nearest-rank method on an ascending slice.
func quantile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	return sorted[max(0, min(rank-1, len(sorted)-1))]
}
