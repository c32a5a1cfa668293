package analytics

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
)

// HandleMessage decodes search events read back from the search-events
// topic and writes each one to every sink in order, stopping at the first
// failure. Undecodable messages are logged and skipped so they do not block
// the partition. The consumer retries a failed message from the first sink,
// so an in-memory Aggregator must come last to avoid counting it twice.
func HandleMessage(sinks ...Sink) kafka.MessageHandler {
	log := logger.WithComponent("analytics-consumer")
	return func(ctx context.Context, key, value []byte) error {
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			log.Warn("skipping malformed search event", "key", string(key), "error", err)
			return nil
		}
		batch := []SearchEvent{event}
		for _, sink := range sinks {
			if err := sink.Write(ctx, batch); err != nil {
				return fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
		}
		return nil
	}
}
