package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
)

// Sink receives batches of events. Write is called from a single goroutine.
type Sink interface {
	Name() string
	Write(ctx context.Context, events []SearchEvent) error
}

// Collector buffers events from the query path and flushes them to every
// sink when a batch fills up or the flush interval passes. Track never
// blocks; events are dropped when the buffer is full.
type Collector struct {
	sinks         []Sink
	eventCh       chan SearchEvent
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started atomic.Bool
	dropped atomic.Int64
	done    chan struct{}
}

func NewCollector(cfg config.AnalyticsConfig, sinks ...Sink) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	return &Collector{
		sinks:         sinks,
		eventCh:       make(chan SearchEvent, cfg.BufferSize),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		logger:        logger.WithComponent("analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the flush loop. Cancelling ctx drains what is buffered,
// flushes it and stops the loop.
func (c *Collector) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.run(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
		"sinks", len(c.sinks),
	)
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]SearchEvent, 0, c.batchSize)
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				c.finalFlush(batch)
				return
			}
			batch = append(batch, event)
			if len(batch) >= c.batchSize {
				c.flush(ctx, batch)
				batch = make([]SearchEvent, 0, c.batchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				c.flush(ctx, batch)
				batch = make([]SearchEvent, 0, c.batchSize)
			}
		case <-ctx.Done():
			c.finalFlush(c.drain(batch))
			return
		}
	}
}

func (c *Collector) drain(batch []SearchEvent) []SearchEvent {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, event)
		default:
			return batch
		}
	}
}

func (c *Collector) finalFlush(batch []SearchEvent) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.flush(ctx, batch)
}

func (c *Collector) flush(ctx context.Context, batch []SearchEvent) {
	for _, sink := range c.sinks {
		if err := sink.Write(ctx, batch); err != nil {
			c.logger.Error("failed to write analytics batch",
				"sink", sink.Name(),
				"events", len(batch),
				"error", err,
			)
		}
	}
	c.logger.Debug("analytics batch flushed", "events", len(batch))
}

// Track enqueues event. It is a no-op after Close.
func (c *Collector) Track(event SearchEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)", "term", event.Term)
	}
}

// Dropped returns how many events were lost to a full buffer.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events, flushes the remainder and waits for the loop
// to exit.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.eventCh)
	c.mu.Unlock()
	if c.started.Load() {
		<-c.done
	}
}
