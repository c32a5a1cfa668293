package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
)

func TestEncodeKeepsKeysAndJSON(t *testing.T) {
	msgs, err := encode([]Event{
		{Key: "cat", Value: map[string]int{"hits": 2}},
		{Key: "dog", Value: "plain"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "cat", string(msgs[0].Key))
	assert.JSONEq(t, `{"hits":2}`, string(msgs[0].Value))
	assert.Equal(t, `"plain"`, string(msgs[1].Value))
}

func TestEncodeRejectsUnmarshalableValue(t *testing.T) {
	_, err := encode([]Event{{Key: "k", Value: make(chan int)}})
	assert.Error(t, err)
}

func TestNewProducerKeysByHash(t *testing.T) {
	p := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, "search-events")
	defer p.Close()
	assert.Equal(t, "search-events", p.writer.Topic)
	assert.IsType(t, &kafka.Hash{}, p.writer.Balancer)
}

func TestPublishBatchSkipsEmptyBatch(t *testing.T) {
	p := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, "search-events")
	defer p.Close()
	assert.NoError(t, p.PublishBatch(context.Background(), nil))
}

func TestDecodeJSONRoundTripsEncode(t *testing.T) {
	type hit struct {
		Term string `json:"term"`
		Hits int    `json:"hits"`
	}
	msgs, err := encode([]Event{{Key: "cat", Value: hit{Term: "cat", Hits: 2}}})
	require.NoError(t, err)

	got, err := DecodeJSON[hit](msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, hit{Term: "cat", Hits: 2}, got)

	_, err = DecodeJSON[hit]([]byte("{not json"))
	assert.ErrorContains(t, err, "decoding kafka message")
}
