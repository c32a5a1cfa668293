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
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/middleware"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	corpusLocation := flag.String("corpus", "", "corpus directory or s3://bucket/prefix")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpusLocation != "" {
		cfg.Corpus.Location = *corpusLocation
	}

	logger.Setup(nil, cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "corpus", cfg.Corpus.Location)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	docStore, err := corpus.Open(ctx, cfg.Corpus.Location, cfg.Corpus.S3)
	if err != nil {
		slog.Error("invalid corpus location", "location", cfg.Corpus.Location, "error", err)
		os.Exit(1)
	}
	idx, stats, err := indexer.NewEngine(docStore, cfg.Indexer).WithMetrics(m).Build(ctx)
	if err != nil {
		slog.Error("failed to build index", "error", err)
		os.Exit(1)
	}

	backends := bootstrap.Connect(ctx, cfg)
	defer backends.Close()

	var queryCache *cache.QueryCache
	if backends.Redis != nil {
		queryCache = cache.New(backends.Redis, cfg.Redis, m)
	}

	aggregator := analytics.NewAggregator()
	collector := analytics.NewCollector(cfg.Analytics, append([]analytics.Sink{aggregator}, backends.Sinks()...)...)
	collector.Start(ctx)
	defer collector.Close()
	if backends.Store != nil && cfg.Analytics.SnapshotInterval > 0 {
		backends.Store.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", idx.TotalDocuments(), idx.Terms()),
		}
	})
	backends.RegisterHealth(checker)

	svc := service.New(executor.New(idx, docStore, cfg.Search), queryCache, collector, m, analytics.SourceHTTP)
	h := handler.New(svc, queryCache, stats)
	analyticsH := analytics.NewHandler(aggregator).WithCollector(collector)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	if backends.Store != nil {
		mux.HandleFunc("GET /api/v1/analytics/history", store.NewHistoryHandler(backends.Store).Serve)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		chain = middleware.RateLimit(middleware.NewLimiter(ctx, cfg.Server.RateLimit, time.Minute))(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr, "index_id", idx.ID())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
