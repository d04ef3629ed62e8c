// Command loadtest drives a running searcher with concurrent vector and
// boolean queries and prints latency and status-code statistics.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type Config struct {
	BaseURL     string
	Mode        string
	Concurrency int
	Duration    time.Duration
	RPS         float64
	Limit       int
	Queries     []string
}

var defaultQueries = []string{
	"kotlin coroutines",
	"java virtual machine",
	"garbage collection",
	"compiler plugin",
	"kotlin AND java",
	"android OR ios",
	"kotlin AND NOT java",
	"(gradle OR maven) AND build",
	"multiplatform",
	"language release",
}

// Stats collects results per mode. Safe for concurrent use.
type Stats struct {
	mu          sync.Mutex
	latencies   map[string][]time.Duration
	statusCodes map[int]int64
	errors      int64
	total       int64
	cacheHits   int64
	zeroResults int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make(map[string][]time.Duration),
		statusCodes: make(map[int]int64),
	}
}

// searchBody covers the fields of both response shapes the report needs.
type searchBody struct {
	TotalHits int  `json:"total_hits"`
	CacheHit  bool `json:"cache_hit"`
}

func (s *Stats) Record(mode string, d time.Duration, status int, body *searchBody, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if err != nil {
		s.errors++
		return
	}
	s.statusCodes[status]++
	if status < 200 || status >= 300 {
		s.errors++
		return
	}
	s.latencies[mode] = append(s.latencies[mode], d)
	if body != nil {
		if body.CacheHit {
			s.cacheHits++
		}
		if body.TotalHits == 0 {
			s.zeroResults++
		}
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	mode := flag.String("mode", "mixed", "query mode: vector, boolean or mixed")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	rps := flag.Float64("rps", 0, "target requests per second across all workers (0 = unlimited)")
	limit := flag.Int("limit", 10, "limit parameter for vector queries")
	queryFile := flag.String("queries", "", "file with one query per line (defaults to a built-in set)")
	flag.Parse()

	queries := defaultQueries
	if *queryFile != "" {
		var err error
		if queries, err = readQueries(*queryFile); err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
	}
	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Mode:        *mode,
		Concurrency: *concurrency,
		Duration:    *duration,
		RPS:         *rps,
		Limit:       *limit,
		Queries:     queries,
	}
	switch cfg.Mode {
	case "vector", "boolean", "mixed":
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", cfg.Mode)
		os.Exit(2)
	}

	fmt.Println("=== lexisearch load test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Mode:        %s\n", cfg.Mode)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n\n", len(cfg.Queries))

	stats, err := run(context.Background(), cfg, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}
	if !printReport(os.Stdout, stats, cfg.Duration) {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, client *http.Client) (*Stats, error) {
	if len(cfg.Queries) == 0 {
		return nil, errors.New("no queries")
	}
	stats := NewStats()
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), max(1, int(cfg.RPS)/10))
	}

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		g.Go(func() error {
			for i := w; ; i++ {
				if err := limiter.Wait(ctx); err != nil {
					return nil
				}
				query := cfg.Queries[i%len(cfg.Queries)]
				mode := pickMode(cfg.Mode, i)
				start := time.Now()
				status, body, err := doQuery(ctx, client, requestURL(cfg, mode, query))
				if ctx.Err() != nil {
					return nil
				}
				stats.Record(mode, time.Since(start), status, body, err)
			}
		})
	}
	return stats, g.Wait()
}

func pickMode(mode string, i int) string {
	if mode != "mixed" {
		return mode
	}
	if i%2 == 0 {
		return "vector"
	}
	return "boolean"
}

func requestURL(cfg Config, mode, query string) string {
	if mode == "boolean" {
		return fmt.Sprintf("%s/api/v1/boolean?q=%s", cfg.BaseURL, url.QueryEscape(query))
	}
	return fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d", cfg.BaseURL, url.QueryEscape(query), cfg.Limit)
}

func doQuery(ctx context.Context, client *http.Client, rawURL string) (int, *searchBody, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	var body searchBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil, nil
	}
	return resp.StatusCode, &body, nil
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var queries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	return queries, sc.Err()
}

// printReport writes the summary and reports whether any request completed.
func printReport(w io.Writer, stats *Stats, duration time.Duration) bool {
	stats.mu.Lock()
	defer stats.mu.Unlock()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", stats.total)
	fmt.Fprintf(w, "Errors:          %d\n", stats.errors)
	fmt.Fprintf(w, "Cache Hits:      %d\n", stats.cacheHits)
	fmt.Fprintf(w, "Zero Results:    %d\n", stats.zeroResults)
	if stats.total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(stats.errors)/float64(stats.total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(stats.total)/duration.Seconds())
	}

	modes := make([]string, 0, len(stats.latencies))
	for mode := range stats.latencies {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	for _, mode := range modes {
		latencies := append([]time.Duration(nil), stats.latencies[mode]...)
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		fmt.Fprintf(w, "\n=== Latency (%s, %d requests) ===\n", mode, len(latencies))
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", mean(latencies))
		fmt.Fprintf(w, "P50:    %s\n", percentile(latencies, 50))
		fmt.Fprintf(w, "P95:    %s\n", percentile(latencies, 95))
		fmt.Fprintf(w, "P99:    %s\n", percentile(latencies, 99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Fprintln(w, "\n=== Status Codes ===")
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, stats.statusCodes[code])
	}
	if stats.total == 0 {
		fmt.Fprintln(w, "\nWARNING: No requests completed. Is the service running?")
		return false
	}
	return true
}

func mean(ds []time.Duration) time.Duration {
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	return sum / time.Duration(len(ds))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
