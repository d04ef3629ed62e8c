// Package collector buffers events in memory and publishes them to Kafka
// in batches. The indexer uses it for per-document index events.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/kafka"
)

// BatchCollector flushes when the buffer reaches batchSize events or every
// flushInterval, whichever comes first.
type BatchCollector struct {
	publisher     kafka.Publisher
	mu            sync.Mutex
	flushMu       sync.Mutex
	buffer        []kafka.Event
	batchSize     int
	flushInterval time.Duration
	dropped       int
	logger        *slog.Logger
	done          chan struct{}
}

func NewBatchCollector(publisher kafka.Publisher, batchSize int, flushInterval time.Duration) *BatchCollector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &BatchCollector{
		publisher:     publisher,
		buffer:        make([]kafka.Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "batch-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the flush loop. When ctx is cancelled the loop makes a
// final flush and exits.
func (bc *BatchCollector) Start(ctx context.Context) {
	go func() {
		defer close(bc.done)
		ticker := time.NewTicker(bc.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				bc.Flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				bc.Flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	bc.logger.Info("batch collector started",
		"batch_size", bc.batchSize,
		"flush_interval", bc.flushInterval,
	)
}

// Track buffers an event and flushes in the background once the batch is
// full.
func (bc *BatchCollector) Track(key string, value any) {
	bc.mu.Lock()
	bc.buffer = append(bc.buffer, kafka.Event{Key: key, Value: value})
	shouldFlush := len(bc.buffer) >= bc.batchSize
	bc.mu.Unlock()
	if shouldFlush {
		go bc.Flush(context.Background())
	}
}

// Close waits for the flush loop started by Start to finish.
func (bc *BatchCollector) Close() {
	<-bc.done
}

func (bc *BatchCollector) BufferLen() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.buffer)
}

// Dropped returns how many events were discarded after failed flushes.
func (bc *BatchCollector) Dropped() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.dropped
}

// Flush publishes the buffered events. Failed batches are re-queued up to
// three batches' worth; the overflow is dropped.
func (bc *BatchCollector) Flush(ctx context.Context) {
	bc.flushMu.Lock()
	defer bc.flushMu.Unlock()

	bc.mu.Lock()
	if len(bc.buffer) == 0 {
		bc.mu.Unlock()
		return
	}
	batch := bc.buffer
	bc.buffer = make([]kafka.Event, 0, bc.batchSize)
	bc.mu.Unlock()

	if err := bc.publisher.PublishBatch(ctx, batch); err != nil {
		bc.logger.Error("batch flush failed", "batch_size", len(batch), "error", err)
		bc.mu.Lock()
		bc.buffer = append(batch, bc.buffer...)
		if limit := bc.batchSize * 3; len(bc.buffer) > limit {
			n := len(bc.buffer) - limit
			bc.buffer = bc.buffer[:limit]
			bc.dropped += n
			bc.logger.Warn("buffer overflow, events dropped", "dropped", n)
		}
		bc.mu.Unlock()
		return
	}
	bc.logger.Debug("batch flushed", "events", len(batch))
}
