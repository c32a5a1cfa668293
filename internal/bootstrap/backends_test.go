package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/health"
)

func TestConnectWithEverythingDisabled(t *testing.T) {
	b := Connect(context.Background(), config.Default())
	assert.Nil(t, b.Redis)
	assert.Nil(t, b.Producer)
	assert.Nil(t, b.Store)
	assert.Empty(t, b.Sinks())

	c := health.NewChecker()
	b.RegisterHealth(c)
	assert.Empty(t, c.Run(context.Background()).Components)
	b.Close()
}

func TestKafkaSinkWiredWhenEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.Kafka.Enabled = true
	b := Connect(context.Background(), cfg)
	defer b.Close()

	sinks := b.Sinks()
	if assert.Len(t, sinks, 1) {
		assert.Equal(t, "kafka", sinks[0].Name())
	}
}
