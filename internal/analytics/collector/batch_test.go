package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    bool
}

func (f *fakePublisher) Publish(ctx context.Context, e kafka.Event) error {
	return f.PublishBatch(ctx, []kafka.Event{e})
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.batches = append(f.batches, events)
	return nil
}

func (f *fakePublisher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestFinalFlushOnCancel(t *testing.T) {
	pub := &fakePublisher{}
	bc := NewBatchCollector(pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	bc.Start(ctx)
	for i := 0; i < 5; i++ {
		bc.Track("doc", i)
	}
	cancel()
	bc.Close()
	if got := pub.total(); got != 5 {
		t.Errorf("published %d events, want 5", got)
	}
	if bc.BufferLen() != 0 {
		t.Errorf("BufferLen = %d after final flush", bc.BufferLen())
	}
}

func TestFailedFlushRequeuesAndCaps(t *testing.T) {
	pub := &fakePublisher{fail: true}
	bc := NewBatchCollector(pub, 2, time.Hour)
	for i := 0; i < 2; i++ {
		bc.mu.Lock()
		bc.buffer = append(bc.buffer, kafka.Event{Key: "k", Value: i})
		bc.mu.Unlock()
	}
	bc.Flush(context.Background())
	if bc.BufferLen() != 2 {
		t.Fatalf("BufferLen = %d, want 2 re-queued", bc.BufferLen())
	}

	bc.mu.Lock()
	for i := 0; i < 6; i++ {
		bc.buffer = append(bc.buffer, kafka.Event{Key: "k", Value: i})
	}
	bc.mu.Unlock()
	bc.Flush(context.Background())
	if bc.BufferLen() != 6 || bc.Dropped() != 2 {
		t.Errorf("BufferLen = %d, Dropped = %d; want 6, 2", bc.BufferLen(), bc.Dropped())
	}

	pub.mu.Lock()
	pub.fail = false
	pub.mu.Unlock()
	bc.Flush(context.Background())
	if pub.total() != 6 || bc.BufferLen() != 0 {
		t.Errorf("after recovery published %d, buffered %d", pub.total(), bc.BufferLen())
	}
}
