package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/metrics"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches     int64            `json:"total_searches"`
	SearchesByMode    map[string]int64 `json:"searches_by_mode"`
	TotalDocIndexed   int64            `json:"total_docs_indexed"`
	IndexBuilds       int64            `json:"index_builds"`
	LastBuildID       string           `json:"last_build_id,omitempty"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     atomic.Int64
	totalDocIndexed   atomic.Int64
	indexBuilds       atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	zeroResults       atomic.Int64
	latencies         []int64
	byMode            map[string]int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	lastBuildID       string
	startTime         time.Time

	consumer *kafka.Consumer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewAggregator returns an aggregator fed by consumer. consumer may be nil
// when events are recorded directly.
func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		byMode:            make(map[string]int64),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		consumer:          consumer,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

func (a *Aggregator) SetConsumer(consumer *kafka.Consumer) {
	a.consumer = consumer
}

// SetMetrics exports indexer progress seen on the event stream.
func (a *Aggregator) SetMetrics(m *metrics.Metrics) {
	a.metrics = m
}

func (a *Aggregator) Start(ctx context.Context) error {
	if a.consumer == nil {
		return nil
	}
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent routes an analytics message by its "type" field. Undecodable
// and unknown messages are logged and acknowledged.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		env, err := kafka.DecodeJSON[envelope](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch env.Type {
		case EventSearch:
			event, err := kafka.DecodeJSON[SearchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode search event", "error", err)
				return nil
			}
			agg.RecordSearch(event)
		case EventIndexDoc:
			event, err := kafka.DecodeJSON[IndexEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode index event", "error", err)
				return nil
			}
			agg.RecordIndex(event)
		case EventIndexComplete:
			event, err := kafka.DecodeJSON[IndexCompleteEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode index complete event", "error", err)
				return nil
			}
			agg.RecordIndexComplete(event)
		default:
			agg.logger.Warn("unknown analytics event type", "type", env.Type)
		}
		return nil
	}
}

func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.totalSearches.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if event.TotalHits == 0 {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	if len(a.latencies) >= maxLatencySamples {
		a.latencies = a.latencies[1:]
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	a.byMode[event.Mode]++
	a.queryCounts[event.Query]++
	if event.TotalHits == 0 {
		a.zeroResultQueries[event.Query]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) RecordIndex(event IndexEvent) {
	a.totalDocIndexed.Add(1)
	if a.metrics != nil {
		a.metrics.DocsIndexedTotal.WithLabelValues(event.Artifact).Inc()
	}
}

func (a *Aggregator) RecordIndexComplete(event IndexCompleteEvent) {
	a.indexBuilds.Add(1)
	a.mu.Lock()
	a.lastBuildID = event.BuildID
	a.mu.Unlock()
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches.Load(),
		SearchesByMode:  make(map[string]int64, len(a.byMode)),
		TotalDocIndexed: a.totalDocIndexed.Load(),
		IndexBuilds:     a.indexBuilds.Load(),
		LastBuildID:     a.lastBuildID,
		CacheHits:       a.cacheHits.Load(),
		CacheMisses:     a.cacheMisses.Load(),
		ZeroResultCount: a.zeroResults.Load(),
	}
	for mode, n := range a.byMode {
		stats.SearchesByMode[mode] = n
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

// Restore seeds the running totals from a persisted snapshot so counters
// survive restarts. Latency samples and query counts start empty.
func (a *Aggregator) Restore(stats AggregatedStats) {
	a.totalSearches.Store(stats.TotalSearches)
	a.totalDocIndexed.Store(stats.TotalDocIndexed)
	a.indexBuilds.Store(stats.IndexBuilds)
	a.cacheHits.Store(stats.CacheHits)
	a.cacheMisses.Store(stats.CacheMisses)
	a.zeroResults.Store(stats.ZeroResultCount)
	a.mu.Lock()
	defer a.mu.Unlock()
	for mode, n := range stats.SearchesByMode {
		a.byMode[mode] = n
	}
	a.lastBuildID = stats.LastBuildID
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count descending, then query ascending.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
