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
	"time"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/vector"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/redis"
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
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"vector_source", cfg.Search.VectorSource,
		"lemmatizer", cfg.Search.Lemmatizer,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	var art *searcher.Artifacts
	err = resilience.WithTimeout(ctx, cfg.Search.LoadTimeout, "load-artifacts", func(ctx context.Context) error {
		var err error
		art, err = searcher.Load(ctx, cfg, m)
		return err
	})
	if err != nil {
		slog.Error("failed to load search artifacts", "error", err)
		os.Exit(1)
	}

	pages := corpus.NewPageStore(cfg.Corpus.PagesDir, cfg.Search.UntitledTitle)
	booleanEngine := executor.NewBoolean(art.Index, art.Lemmatizer)
	vectorEngine := vector.NewEngine(art.Vectors, art.VectorLemmatizer, pages, cfg.Search.UntitledTitle)

	checker := health.NewChecker()
	checker.Register("inverted_index", health.Artifact(func() (int, bool) {
		return art.Index.Len(), art.Index.Len() > 0
	}))
	checker.Register("vectors", health.Artifact(func() (int, bool) {
		return art.Vectors.Len(), art.Vectors.Len() > 0
	}))

	var queryCache *cache.QueryCache
	if cfg.Search.CacheEnabled {
		redisClient, err := connectRedis(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
				OnStateChange: func(name string, from, to resilience.State) {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				},
			})
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, cfg.Search.VectorSource, breaker)
			checker.Register("redis", health.Ping(redisClient.Ping, true))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	agg := analytics.NewAggregator(nil)
	agg.SetMetrics(m)
	var publisher kafka.Publisher = analytics.NewLocalPublisher(agg)
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		publisher = producer
		agg.SetConsumer(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents,
			cfg.Kafka.ConsumerGroup+"-analytics", analytics.HandleEvent(agg)))
		go func() {
			if err := agg.Start(ctx); err != nil {
				slog.Error("analytics aggregator error", "error", err)
			}
		}()

		completeConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete,
			instanceGroup(cfg.Kafka.ConsumerGroup), handleIndexComplete(queryCache, agg))
		go func() {
			if err := completeConsumer.Start(ctx); err != nil {
				slog.Error("index complete consumer error", "error", err)
			}
		}()
	}
	collector := analytics.NewCollector(publisher, cfg.Analytics.BufferSize)
	collector.Start(ctx)
	defer collector.Close()

	var history analytics.SnapshotLister
	if cfg.Postgres.Enabled {
		store, closeStore, err := openSnapshotStore(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer closeStore()
			if latest, err := store.LatestSnapshot(ctx); err != nil {
				slog.Warn("failed to restore analytics snapshot", "error", err)
			} else if latest != nil {
				agg.Restore(*latest)
				slog.Info("analytics restored", "total_searches", latest.TotalSearches)
			}
			store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval, cfg.Analytics.SnapshotKeep)
			history = store
		}
	}

	h := handler.New(handler.Options{
		Vector:       vectorEngine,
		Boolean:      booleanEngine,
		Pages:        pages,
		Cache:        queryCache,
		Collector:    collector,
		Metrics:      m,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
	})
	analyticsH := analytics.NewHandler(agg, history)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mws := []func(http.Handler) http.Handler{middleware.RequestID, middleware.Metrics(m)}
	if cfg.RateLimit.Enabled {
		rl := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		if err := rl.TrustProxies(cfg.RateLimit.TrustedProxies); err != nil {
			slog.Error("invalid rate limit config", "error", err)
			os.Exit(1)
		}
		go sweepLimiter(ctx, rl)
		mws = append(mws, middleware.RateLimit(rl, m))
	}
	mws = append(mws, middleware.Timeout(cfg.Server.RequestTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, mws...),
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("search service stopped")
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*pkgredis.Client, error) {
	var client *pkgredis.Client
	err := resilience.Retry(ctx, "redis-connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		var err error
		client, err = pkgredis.NewClient(ctx, cfg)
		return err
	})
	return client, err
}

func openSnapshotStore(ctx context.Context, cfg config.PostgresConfig) (*aggregator.Store, func(), error) {
	var db *postgres.Client
	err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
		var err error
		db, err = postgres.New(ctx, cfg)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	store := aggregator.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, func() { db.Close() }, nil
}

// handleIndexComplete drops cached results once a new build is announced.
// The loaded artifacts stay in place until the service restarts.
func handleIndexComplete(queryCache *cache.QueryCache, agg *analytics.Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[analytics.IndexCompleteEvent](value)
		if err != nil {
			slog.Error("failed to decode index complete event", "error", err)
			return nil
		}
		agg.RecordIndexComplete(event)
		if queryCache == nil {
			return nil
		}
		deleted, err := queryCache.Invalidate(ctx)
		if err != nil {
			return err
		}
		slog.Info("cache invalidated after rebuild",
			"build_id", event.BuildID,
			"documents", event.Documents,
			"keys_deleted", deleted,
		)
		return nil
	}
}

// instanceGroup gives every searcher its own consumer group so each one sees
// every build notification.
func instanceGroup(base string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = fmt.Sprintf("pid-%d", os.Getpid())
	}
	return base + "-searcher-" + host
}

func sweepLimiter(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
