package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/termsearch/internal/console"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	corpusLocation := flag.String("corpus", "", "corpus directory or s3://bucket/prefix (prompted for when empty)")
	flag.Parse()

	os.Exit(run(*configPath, *corpusLocation))
}

func run(configPath, corpusLocation string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	if corpusLocation != "" {
		cfg.Corpus.Location = corpusLocation
	}

	logger.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		shutdown := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	backends := bootstrap.Connect(ctx, cfg)
	defer backends.Close()

	session := console.NewSession(os.Stdin, os.Stdout, cfg).WithMetrics(m)
	if sinks := backends.Sinks(); len(sinks) > 0 {
		collector := analytics.NewCollector(cfg.Analytics, sinks...)
		collector.Start(ctx)
		defer collector.Close()
		session = session.WithCollector(collector)
	}

	if err := session.Run(ctx); err != nil {
		slog.Error("session ended with error", "error", err)
		return 1
	}
	return 0
}
