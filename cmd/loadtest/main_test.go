package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	var ds []time.Duration
	for i := 1; i <= 100; i++ {
		ds = append(ds, time.Duration(i)*time.Millisecond)
	}
	if got := percentile(ds, 50); got != 50*time.Millisecond {
		t.Errorf("p50 = %s", got)
	}
	if got := percentile(ds, 99); got != 99*time.Millisecond {
		t.Errorf("p99 = %s", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("empty p50 = %s", got)
	}
}

func TestRunMixed(t *testing.T) {
	var vectorHits, booleanHits atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		vectorHits.Add(1)
		w.Write([]byte(`{"total_hits":3,"cache_hit":true}`))
	})
	mux.HandleFunc("GET /api/v1/boolean", func(w http.ResponseWriter, r *http.Request) {
		booleanHits.Add(1)
		w.Write([]byte(`{"total_hits":0}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := Config{
		BaseURL:     srv.URL,
		Mode:        "mixed",
		Concurrency: 2,
		Duration:    200 * time.Millisecond,
		Limit:       5,
		Queries:     []string{"kotlin", "java AND kotlin"},
	}
	stats, err := run(context.Background(), cfg, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	if vectorHits.Load() == 0 || booleanHits.Load() == 0 {
		t.Fatalf("vector=%d boolean=%d", vectorHits.Load(), booleanHits.Load())
	}
	if stats.cacheHits == 0 || stats.zeroResults == 0 || stats.errors != 0 {
		t.Errorf("cache=%d zero=%d errors=%d", stats.cacheHits, stats.zeroResults, stats.errors)
	}

	var out strings.Builder
	if !printReport(&out, stats, cfg.Duration) {
		t.Error("printReport reported no requests")
	}
	if !strings.Contains(out.String(), "Latency (boolean") || !strings.Contains(out.String(), "200:") {
		t.Errorf("report:\n%s", out.String())
	}
}

func TestRequestURL(t *testing.T) {
	cfg := Config{BaseURL: "http://h", Limit: 7}
	if got := requestURL(cfg, "boolean", "a AND b"); got != "http://h/api/v1/boolean?q=a+AND+b" {
		t.Errorf("boolean url = %s", got)
	}
	if got := requestURL(cfg, "vector", "a b"); got != "http://h/api/v1/search?q=a+b&limit=7" {
		t.Errorf("vector url = %s", got)
	}
}
