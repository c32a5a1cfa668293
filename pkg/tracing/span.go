// Package tracing records lightweight span trees through Go contexts. A
// search request opens a root span, the executor hangs child spans off it,
// and the finished tree is written to slog at debug level.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type spanKey struct{}

type Span struct {
	Name     string
	TraceID  string
	Children []*Span

	mu      sync.Mutex
	began   time.Time
	elapsed time.Duration
	attrs   []slog.Attr
}

// StartSpan opens the root of a trace identified by traceID.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	s := &Span{Name: name, TraceID: traceID, began: time.Now()}
	return context.WithValue(ctx, spanKey{}, s), s
}

// StartChildSpan opens a span under the one in ctx. Without a parent the
// span still works but belongs to no trace.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	var traceID string
	parent := FromContext(ctx)
	if parent != nil {
		traceID = parent.TraceID
	}
	ctx, child := StartSpan(ctx, name, traceID)
	if parent != nil {
		parent.mu.Lock()
		parent.Children = append(parent.Children, child)
		parent.mu.Unlock()
	}
	return ctx, child
}

// FromContext returns the innermost span in ctx, or nil.
func FromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

func (s *Span) End() {
	s.mu.Lock()
	s.elapsed = time.Since(s.began)
	s.mu.Unlock()
}

// SetAttr records a key/value logged with the span, in insertion order.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, value))
	s.mu.Unlock()
}

// Log writes one debug record per span, depth-first.
func (s *Span) Log(logger *slog.Logger) {
	s.log(logger, 0)
}

func (s *Span) log(logger *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := append([]slog.Attr{
		slog.String("trace_id", s.TraceID),
		slog.String("span", s.Name),
		slog.Int64("duration_ms", s.elapsed.Milliseconds()),
		slog.Int("depth", depth),
	}, s.attrs...)
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()

	logger.LogAttrs(context.Background(), slog.LevelDebug, "span", attrs...)
	for _, c := range children {
		c.log(logger, depth+1)
	}
}
