package analytics

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/kafka"
)

// BatchPublisher is the part of kafka.Producer the sink needs.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// KafkaSink publishes each event to the search-events topic keyed by term,
// so all events for one term stay ordered on one partition.
type KafkaSink struct {
	publisher BatchPublisher
}

func NewKafkaSink(publisher BatchPublisher) *KafkaSink {
	return &KafkaSink{publisher: publisher}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Write(ctx context.Context, events []SearchEvent) error {
	batch := make([]kafka.Event, len(events))
	for i, event := range events {
		batch[i] = kafka.Event{Key: event.Term, Value: event}
	}
	if err := s.publisher.PublishBatch(ctx, batch); err != nil {
		return fmt.Errorf("kafka sink: %w", err)
	}
	return nil
}
