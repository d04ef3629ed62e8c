// Package handler exposes the boolean and vector query engines over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/vector"
	apperrors "github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/middleware"
)

type VectorSearcher interface {
	Search(ctx context.Context, query string, k int) (*vector.SearchResult, error)
}

type BooleanSearcher interface {
	Search(ctx context.Context, query string) (*executor.BooleanResult, error)
}

type PageOpener interface {
	Open(name string) (*os.File, error)
}

// Options wires the handler. Cache, Collector, Metrics and Pages may be nil.
type Options struct {
	Vector       VectorSearcher
	Boolean      BooleanSearcher
	Pages        PageOpener
	Cache        *cache.QueryCache
	Collector    *analytics.Collector
	Metrics      *metrics.Metrics
	DefaultLimit int
	MaxResults   int
}

type Handler struct {
	vector       VectorSearcher
	boolean      BooleanSearcher
	pages        PageOpener
	cache        *cache.QueryCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func New(opts Options) *Handler {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxResults < opts.DefaultLimit {
		opts.MaxResults = opts.DefaultLimit
	}
	return &Handler{
		vector:       opts.Vector,
		boolean:      opts.Boolean,
		pages:        opts.Pages,
		cache:        opts.Cache,
		collector:    opts.Collector,
		metrics:      opts.Metrics,
		defaultLimit: opts.DefaultLimit,
		maxResults:   opts.MaxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the query endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/boolean", h.Boolean)
	mux.HandleFunc("GET /api/v1/articles/{name}", h.Article)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search answers a ranked free-text query.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	limit, err := h.parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if query == "" {
		h.writeJSON(w, http.StatusOK, &vector.SearchResult{Results: []ranker.ScoredDoc{}})
		return
	}

	var result *vector.SearchResult
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, query, limit, func() (*vector.SearchResult, error) {
			return h.vector.Search(ctx, query, limit)
		})
	} else {
		result, err = h.vector.Search(ctx, query, limit)
	}
	latency := time.Since(start)
	if err != nil {
		h.metrics.ObserveSearch(analytics.ModeVector, 0, false, latency.Seconds(), err)
		log.Error("vector search failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}
	h.metrics.ObserveSearch(analytics.ModeVector, result.TotalHits, cacheHit, latency.Seconds(), nil)
	if h.cache != nil && h.metrics != nil {
		if cacheHit {
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
	}

	log.Info("search completed",
		"mode", analytics.ModeVector,
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.track(ctx, analytics.ModeVector, query, result.TotalHits, len(result.Results), cacheHit, latency)
	h.writeJSON(w, http.StatusOK, result)
}

// Boolean answers an AND/OR/NOT query with every matching document id.
func (h *Handler) Boolean(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeJSON(w, http.StatusOK, &executor.BooleanResult{DocIDs: []uint32{}})
		return
	}
	result, err := h.boolean.Search(ctx, query)
	latency := time.Since(start)
	if err != nil {
		h.metrics.ObserveSearch(analytics.ModeBoolean, 0, false, latency.Seconds(), err)
		log.Error("boolean search failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}
	h.metrics.ObserveSearch(analytics.ModeBoolean, result.TotalHits, false, latency.Seconds(), nil)

	log.Info("search completed",
		"mode", analytics.ModeBoolean,
		"query", query,
		"postfix", result.Postfix,
		"total_hits", result.TotalHits,
		"latency_ms", latency.Milliseconds(),
	)
	h.track(ctx, analytics.ModeBoolean, query, result.TotalHits, len(result.DocIDs), false, latency)
	h.writeJSON(w, http.StatusOK, result)
}

// Article serves the stored raw page of a document.
func (h *Handler) Article(w http.ResponseWriter, r *http.Request) {
	if h.pages == nil {
		h.writeError(w, apperrors.New(apperrors.ErrDocumentNotFound, http.StatusNotFound, "page store not configured"))
		return
	}
	name := r.PathValue("name")
	f, err := h.pages.Open(name)
	if err != nil {
		if !errors.Is(err, apperrors.ErrDocumentNotFound) {
			h.logger.Error("opening article failed", "name", name, "error", err)
		}
		h.writeError(w, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		h.writeError(w, fmt.Errorf("stat article %q: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache invalidation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// parseLimit returns the default for an empty value and clamps large values
// to the configured maximum.
func (h *Handler) parseLimit(raw string) (int, error) {
	if raw == "" {
		return h.defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer, got %q", raw)
	}
	return min(n, h.maxResults), nil
}

func (h *Handler) track(ctx context.Context, mode, query string, hits, returned int, cacheHit bool, latency time.Duration) {
	if h.collector == nil {
		return
	}
	h.collector.Track(analytics.SearchEvent{
		Type:      analytics.EventSearch,
		Mode:      mode,
		Query:     query,
		TotalHits: hits,
		Returned:  returned,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
	}
	status := apperrors.HTTPStatusCode(err)
	message := http.StatusText(status)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	} else if status == http.StatusNotFound {
		message = apperrors.ErrDocumentNotFound.Error()
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
