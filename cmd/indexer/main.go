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

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var events indexer.EventSink
	var batch *collector.BatchCollector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		batch = collector.NewBatchCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		events = batch

		batchCtx, cancelBatch := context.WithCancel(context.Background())
		batch.Start(batchCtx)
		defer func() {
			cancelBatch()
			batch.Close()
			if n := batch.Dropped(); n > 0 {
				slog.Warn("index events dropped", "count", n)
			}
		}()
	}

	report, err := indexer.NewEngine(cfg.Corpus, cfg.Index, events).Build(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "indexed %d documents: %d terms, %d postings in %s\n",
		report.Documents, report.Terms, report.Postings, report.Elapsed.Round(time.Millisecond))

	if !cfg.Kafka.Enabled {
		return nil
	}
	notifier := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	defer notifier.Close()
	err = resilience.Retry(ctx, "publish-index-complete", resilience.RetryConfig{MaxAttempts: 5}, func() error {
		return notifier.Publish(ctx, kafka.Event{Key: report.BuildID, Value: report.CompleteEvent()})
	})
	if err != nil {
		// The artifacts are already in place; searchers pick them up on restart.
		slog.Error("failed to announce build", "build_id", report.BuildID, "error", err)
		return nil
	}
	slog.Info("build announced", "build_id", report.BuildID, "topic", cfg.Kafka.Topics.IndexComplete)
	return nil
}
