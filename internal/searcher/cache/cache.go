// Package cache keeps ranked vector search results in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/searcher/vector"
	pkgredis "github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/resilience"
)

const keyPrefix = "search:"

// Backend is the key-value store behind the cache. *pkgredis.Client
// satisfies it; Get must return an error matched by pkgredis.IsNilError for
// missing keys.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// QueryCache caches vector search results per normalised query and limit.
// Backend calls go through a circuit breaker; while it is open every lookup
// is a miss and results are computed directly.
type QueryCache struct {
	backend   Backend
	ttl       time.Duration
	namespace string
	breaker   *resilience.CircuitBreaker
	group     singleflight.Group
	logger    *slog.Logger
	hits      atomic.Int64
	misses    atomic.Int64
}

// New returns a cache over backend. namespace separates results computed
// from different vector sets.
func New(backend Backend, ttl time.Duration, namespace string, breaker *resilience.CircuitBreaker) *QueryCache {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{})
	}
	return &QueryCache{
		backend:   backend,
		ttl:       ttl,
		namespace: namespace,
		breaker:   breaker,
		logger:    slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, query string, limit int) (*vector.SearchResult, bool) {
	key := c.buildKey(query, limit)
	var data string
	found := false
	err := c.breaker.Execute(func() error {
		v, err := c.backend.Get(ctx, key)
		if err != nil {
			if pkgredis.IsNilError(err) {
				return nil
			}
			return err
		}
		data, found = v, true
		return nil
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	if !found {
		c.misses.Add(1)
		return nil, false
	}
	var result vector.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, query string, limit int, result *vector.SearchResult) {
	key := c.buildKey(query, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.backend.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or computes, stores and returns a
// fresh one. Concurrent misses for the same key share one computation. The
// returned result always carries the caller's query text.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	limit int,
	computeFn func() (*vector.SearchResult, error),
) (*vector.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, query, limit); ok {
		result.Query = query
		result.CacheHit = true
		return result, true, nil
	}
	key := c.buildKey(query, limit)
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	shared := val.(*vector.SearchResult)
	result := *shared
	result.Query = query
	return &result, false, nil
}

// Invalidate drops every cached result of every namespace.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.backend.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

func (c *QueryCache) buildKey(query string, limit int) string {
	raw := fmt.Sprintf("%s|limit=%d", normalizeQuery(query), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, c.namespace, hash[:16])
}

// normalizeQuery maps queries with the same multiset of words to the same
// key, since word order does not affect the query vector.
func normalizeQuery(query string) string {
	words := tokenizer.Words(query)
	sort.Strings(words)
	return strings.Join(words, " ")
}
