// Package bootstrap connects the optional backends both binaries share:
// Redis for the result cache, Kafka and Postgres for analytics. A backend
// that is disabled or unreachable is left nil and the process runs without
// it.
package bootstrap

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/termsearch/pkg/redis"
)

type Backends struct {
	Redis    *pkgredis.Client
	Producer *kafka.Producer
	Postgres *postgres.Client
	Store    *store.Store
}

// Connect dials every enabled backend.
func Connect(ctx context.Context, cfg *config.Config) *Backends {
	b := &Backends{}
	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			b.Redis = client
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	if cfg.Kafka.Enabled {
		b.Producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		slog.Info("search events publishing to kafka", "topic", cfg.Kafka.Topics.SearchEvents)
	}
	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, search events not persisted", "error", err)
		} else {
			s := store.New(db)
			if err := s.EnsureSchema(ctx); err != nil {
				slog.Warn("analytics schema unavailable, search events not persisted", "error", err)
				db.Close()
			} else {
				b.Postgres = db
				b.Store = s
				slog.Info("search events persisted to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
			}
		}
	}
	return b
}

// Sinks returns the external analytics sinks that connected.
func (b *Backends) Sinks() []analytics.Sink {
	var sinks []analytics.Sink
	if b.Producer != nil {
		sinks = append(sinks, analytics.NewKafkaSink(b.Producer))
	}
	if b.Store != nil {
		sinks = append(sinks, b.Store)
	}
	return sinks
}

// RegisterHealth adds a non-critical check per connected backend.
func (b *Backends) RegisterHealth(c *health.Checker) {
	if b.Redis != nil {
		c.RegisterPing("redis", false, b.Redis.Ping)
	}
	if b.Postgres != nil {
		c.RegisterPing("postgres", false, b.Postgres.Ping)
	}
}

func (b *Backends) Close() {
	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			slog.Error("closing kafka producer", "error", err)
		}
	}
	if b.Postgres != nil {
		b.Postgres.Close()
	}
	if b.Redis != nil {
		b.Redis.Close()
	}
}
