// Package cache stores search results in Redis. Keys cover the canonical
// query plan, the limit and the checksum of every store queried, so a
// reloaded collection never serves results computed from its old index.
// Concurrent identical misses are collapsed with singleflight and Redis
// failures trip a circuit breaker so searches fall back to computing.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

const (
	keyPrefix = "search:"
	allScope  = "_all"
)

// Backend is the subset of the Redis client the cache needs.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache over backend. A nil backend disables caching:
// every lookup misses and GetOrCompute always computes.
func New(backend Backend, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		backend: backend,
		ttl:     cfg.CacheTTL,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
	breakerCfg := resilience.CircuitBreakerConfig{}
	if m != nil {
		breakerCfg.OnStateChange = func(name string, _, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	c.breaker = resilience.NewCircuitBreaker("redis-cache", breakerCfg)
	return c
}

// Enabled reports whether results are actually stored.
func (c *QueryCache) Enabled() bool {
	return c != nil && c.backend != nil
}

// Key derives the cache key for running plan over targets.
func Key(targets []executor.Target, plan *parser.QueryPlan, limit int, partial bool) string {
	scope := allScope
	if len(targets) == 1 {
		scope = targets[0].Collection
	}
	parts := make([]string, 0, len(targets))
	for _, t := range targets {
		parts = append(parts, t.Collection+"="+t.Store.Checksum())
	}
	sort.Strings(parts)
	raw := fmt.Sprintf("%s|%s|limit=%d|partial=%t", strings.Join(parts, ","), plan.Canonical(), limit, partial)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, scope, hash[:16])
}

func (c *QueryCache) Get(ctx context.Context, key string) (*executor.SearchResult, bool) {
	if !c.Enabled() {
		c.miss()
		return nil, false
	}
	var data string
	err := c.guard(func() error {
		var err error
		data, err = c.backend.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if data == "" {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.RecordCacheLookup(true)
	c.logger.Debug("cache hit", "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, key string, result *executor.SearchResult) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.guard(func() error { return c.backend.Set(ctx, key, data, c.ttl) }); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for key or runs computeFn once
// for all concurrent callers with the same key.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key string,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	return c.flush(ctx, keyPrefix+"*")
}

// InvalidateCollection drops results that read collection, including
// fan-out results.
func (c *QueryCache) InvalidateCollection(ctx context.Context, collection string) (int64, error) {
	n, err := c.flush(ctx, keyPrefix+collection+":*")
	if err != nil {
		return n, err
	}
	m, err := c.flush(ctx, keyPrefix+allScope+":*")
	return n + m, err
}

func (c *QueryCache) flush(ctx context.Context, pattern string) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	var deleted int64
	err := c.guard(func() error {
		var err error
		deleted, err = c.backend.FlushByPattern(ctx, pattern)
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache %s: %w", pattern, err)
	}
	c.logger.Info("cache invalidated", "pattern", pattern, "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState names the state of the circuit guarding the backend.
func (c *QueryCache) BreakerState() string {
	return c.breaker.Current().String()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.RecordCacheLookup(false)
}

func (c *QueryCache) guard(fn func() error) error {
	return c.breaker.Execute(fn)
}
