// Command analytics is the standalone analytics service. It reads the
// search events the search binaries publish to Kafka, aggregates them in
// memory (and in Postgres when enabled) and serves GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(nil, cfg.Logging.Level, cfg.Logging.Format)
	if !cfg.Kafka.Enabled {
		slog.Error("analytics service needs kafka; set kafka.enabled or TS_KAFKA_ENABLED")
		os.Exit(1)
	}
	slog.Info("starting analytics service", "port", cfg.Server.Port, "topic", cfg.Kafka.Topics.SearchEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Only Postgres is wanted here; re-publishing to Kafka would loop.
	backendCfg := *cfg
	backendCfg.Kafka.Enabled = false
	backendCfg.Redis.Enabled = false
	backends := bootstrap.Connect(ctx, &backendCfg)
	defer backends.Close()

	aggregator := analytics.NewAggregator()
	sinks := append(backends.Sinks(), aggregator)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents, analytics.HandleMessage(sinks...))

	checker := health.NewChecker()
	backends.RegisterHealth(checker)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	if backends.Store != nil {
		mux.HandleFunc("GET /api/v1/analytics/history", store.NewHistoryHandler(backends.Store).Serve)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.RequestID(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Start(gctx) })
	if backends.Store != nil && cfg.Analytics.SnapshotInterval > 0 {
		backends.Store.StartPeriodicSave(gctx, aggregator, cfg.Analytics.SnapshotInterval)
	}
	g.Go(func() error {
		slog.Info("analytics service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("analytics service error", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}
