package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/resilience"
)

// MessageHandler processes one message. A failing message is retried a few
// times with backoff and then logged and skipped; committing a later offset
// moves the group past it, so it is not redelivered.
type MessageHandler func(ctx context.Context, key, value []byte) error

// Consumer reads one topic as a member of cfg.ConsumerGroup, starting from
// the oldest retained offset when the group is new.
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	retry   resilience.RetryConfig
	logger  *slog.Logger
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafka.FirstOffset,
		}),
		handler: handler,
		retry:   resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second},
		logger:  logger.WithComponent("kafka-consumer").With("topic", topic, "group", cfg.ConsumerGroup),
	}
}

// Start blocks handling messages until ctx is cancelled, then closes the
// reader and returns nil.
func (c *Consumer) Start(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("consuming")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		switch {
		case ctx.Err() != nil:
			c.logger.Info("consumer stopped", "reason", ctx.Err())
			return nil
		case err != nil:
			c.logger.Error("fetch failed", "error", err)
			continue
		}

		at := []any{"partition", msg.Partition, "offset", msg.Offset}
		if err := c.process(ctx, msg.Key, msg.Value); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopped", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("message skipped after retries", append(at, "error", err)...)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", append(at, "error", err)...)
		}
	}
}

func (c *Consumer) process(ctx context.Context, key, value []byte) error {
	return resilience.Retry(ctx, "handle-message", c.retry, func() error {
		return c.handler(ctx, key, value)
	})
}

// DecodeJSON unmarshals a message value written by Producer.
func DecodeJSON[T any](value []byte) (T, error) {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return v, fmt.Errorf("decoding kafka message: %w", err)
	}
	return v, nil
}
