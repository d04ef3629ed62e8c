package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/metrics"
)

func encode(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestHandleEventRoutesByType(t *testing.T) {
	agg := NewAggregator(nil)
	handle := HandleEvent(agg)
	ctx := context.Background()

	messages := [][]byte{
		encode(t, SearchEvent{Type: EventSearch, Mode: ModeVector, Query: "cat", TotalHits: 2, LatencyMs: 4}),
		encode(t, SearchEvent{Type: EventSearch, Mode: ModeBoolean, Query: "cat AND dog", LatencyMs: 1, CacheHit: true}),
		encode(t, IndexEvent{Type: EventIndexDoc, DocID: 7, Name: "article_7.txt", Artifact: "index"}),
		encode(t, IndexCompleteEvent{Type: EventIndexComplete, BuildID: "b1", Documents: 1}),
		[]byte(`{"type":"unknown"}`),
		[]byte(`not json`),
	}
	for _, m := range messages {
		if err := handle(ctx, nil, m); err != nil {
			t.Fatalf("handler returned %v", err)
		}
	}

	stats := agg.Stats()
	if stats.TotalSearches != 2 || stats.TotalDocIndexed != 1 || stats.IndexBuilds != 1 {
		t.Errorf("totals = %d searches, %d docs, %d builds", stats.TotalSearches, stats.TotalDocIndexed, stats.IndexBuilds)
	}
	if diff := cmp.Diff(map[string]int64{ModeVector: 1, ModeBoolean: 1}, stats.SearchesByMode); diff != "" {
		t.Errorf("SearchesByMode mismatch (-want +got):\n%s", diff)
	}
	if stats.CacheHits != 1 || stats.CacheMisses != 1 || stats.ZeroResultCount != 1 {
		t.Errorf("cache %d/%d zero %d", stats.CacheHits, stats.CacheMisses, stats.ZeroResultCount)
	}
	if stats.LastBuildID != "b1" {
		t.Errorf("LastBuildID = %q", stats.LastBuildID)
	}
	if diff := cmp.Diff([]QueryCount{{Query: "cat AND dog", Count: 1}}, stats.ZeroResultQueries); diff != "" {
		t.Errorf("ZeroResultQueries mismatch (-want +got):\n%s", diff)
	}
}

func TestStatsLatencyAndTopQueries(t *testing.T) {
	agg := NewAggregator(nil)
	for i := 1; i <= 100; i++ {
		q := "rare"
		if i%2 == 0 {
			q = "common"
		}
		agg.RecordSearch(SearchEvent{Mode: ModeVector, Query: q, TotalHits: 1, LatencyMs: int64(i)})
	}
	agg.RecordSearch(SearchEvent{Mode: ModeVector, Query: "alpha", TotalHits: 1, LatencyMs: 50})

	stats := agg.Stats()
	if stats.P50LatencyMs != 50 || stats.P99LatencyMs != 99 {
		t.Errorf("p50 = %d, p99 = %d", stats.P50LatencyMs, stats.P99LatencyMs)
	}
	want := []QueryCount{{"common", 50}, {"rare", 50}, {"alpha", 1}}
	if diff := cmp.Diff(want, stats.TopQueries); diff != "" {
		t.Errorf("TopQueries mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordIndexExportsMetrics(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	agg := NewAggregator(nil)
	agg.SetMetrics(m)
	agg.RecordIndex(IndexEvent{Artifact: "tfidf_lemmas"})
	agg.RecordIndex(IndexEvent{Artifact: "tfidf_lemmas"})
	if got := testutil.ToFloat64(m.DocsIndexedTotal.WithLabelValues("tfidf_lemmas")); got != 2 {
		t.Errorf("docs_indexed_total = %v, want 2", got)
	}
}

func TestRestore(t *testing.T) {
	agg := NewAggregator(nil)
	agg.Restore(AggregatedStats{TotalSearches: 10, CacheHits: 4, SearchesByMode: map[string]int64{ModeVector: 10}})
	agg.RecordSearch(SearchEvent{Mode: ModeVector, Query: "x", TotalHits: 1, CacheHit: true})
	stats := agg.Stats()
	if stats.TotalSearches != 11 || stats.CacheHits != 5 || stats.SearchesByMode[ModeVector] != 11 {
		t.Errorf("restored stats = %+v", stats)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e kafka.Event) error {
	return p.PublishBatch(ctx, []kafka.Event{e})
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestCollectorPublishesTrackedEvents(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 8)
	c.Start(context.Background())
	for i := 0; i < 3; i++ {
		c.Track(SearchEvent{Type: EventSearch, Query: "q"})
	}
	c.Close()
	if got := pub.len(); got != 3 {
		t.Errorf("published %d events, want 3", got)
	}
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("down")}
	c := NewCollector(pub, 1)
	c.Track(1)
	c.Track(2)
	if len(c.eventCh) != 1 {
		t.Errorf("buffered %d events, want 1", len(c.eventCh))
	}
	var nilCollector *Collector
	nilCollector.Track(3)
}

type fakeHistory struct {
	limit int
}

func (f *fakeHistory) ListSnapshots(_ context.Context, limit int) ([]AggregatedStats, error) {
	f.limit = limit
	return []AggregatedStats{{TotalSearches: 9}}, nil
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator(nil)
	agg.RecordSearch(SearchEvent{Mode: ModeBoolean, Query: "a", TotalHits: 1, Timestamp: time.Now()})
	hist := &fakeHistory{}
	h := NewHandler(agg, hist)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?history=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body statsResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Current.TotalSearches != 1 || len(body.History) != 1 || hist.limit != 5 {
		t.Errorf("body = %+v, limit = %d", body, hist.limit)
	}

	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?history=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad history status = %d", rec.Code)
	}
}

func TestLocalPublisherFeedsAggregator(t *testing.T) {
	agg := NewAggregator(nil)
	c := NewCollector(NewLocalPublisher(agg), 4)
	c.Start(context.Background())
	c.Track(SearchEvent{Type: EventSearch, Mode: ModeVector, Query: "cat", TotalHits: 3})
	c.Track(IndexCompleteEvent{Type: EventIndexComplete, BuildID: "b2"})
	c.Close()

	stats := agg.Stats()
	if stats.TotalSearches != 1 || stats.IndexBuilds != 1 || stats.LastBuildID != "b2" {
		t.Errorf("stats = %+v", stats)
	}
}
