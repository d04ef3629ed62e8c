// Command analytics runs the standalone analytics service. It consumes the
// search and index events published by searchers and the indexer, keeps the
// aggregate in memory, snapshots it to PostgreSQL when enabled, and serves
// GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8081]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8081, "HTTP port of the analytics API")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if !cfg.Kafka.Enabled {
		slog.Error("analytics service needs kafka.enabled")
		os.Exit(1)
	}
	slog.Info("starting analytics service", "port", *port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	agg := analytics.NewAggregator(nil)
	agg.SetMetrics(m)
	handle := analytics.HandleEvent(agg)
	agg.SetConsumer(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents,
		cfg.Kafka.ConsumerGroup+"-analytics-service", handle))
	builds := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete,
		cfg.Kafka.ConsumerGroup+"-analytics-service", handle)

	checker := health.NewChecker()
	var history analytics.SnapshotLister
	if cfg.Postgres.Enabled {
		var db *postgres.Client
		err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 5}, func() error {
			var err error
			db, err = postgres.New(ctx, cfg.Postgres)
			return err
		})
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store := aggregator.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare analytics schema", "error", err)
			os.Exit(1)
		}
		if latest, err := store.LatestSnapshot(ctx); err != nil {
			slog.Warn("failed to restore analytics snapshot", "error", err)
		} else if latest != nil {
			agg.Restore(*latest)
		}
		store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval, cfg.Analytics.SnapshotKeep)
		checker.Register("postgres", health.Ping(db.Ping, false))
		history = store
	}

	go func() {
		if err := agg.Start(ctx); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()
	go func() {
		if err := builds.Start(ctx); err != nil {
			slog.Error("index complete consumer error", "error", err)
		}
	}()
	slog.Info("analytics consumers started",
		"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
		"index_topic", cfg.Kafka.Topics.IndexComplete,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg, history).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      middleware.Chain(mux, middleware.RequestID, middleware.Metrics(m)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("analytics service stopped")
}
