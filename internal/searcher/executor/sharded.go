package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Collections resolves engines. *catalog.Catalog satisfies it.
type Collections interface {
	Get(name string) (*indexer.Engine, error)
	Engines() []*indexer.Engine
}

// Target pins one collection to the store a query will read.
type Target struct {
	Collection string
	Store      *index.Store
}

// CatalogExecutor searches one collection or all of them.
type CatalogExecutor struct {
	collections Collections
	opts        Options
	logger      *slog.Logger
}

func NewCatalog(collections Collections, opts Options) *CatalogExecutor {
	return &CatalogExecutor{
		collections: collections,
		opts:        opts,
		logger:      slog.Default().With("component", "catalog-executor"),
	}
}

// Targets snapshots the stores to query. An empty collection selects every
// loaded collection; collections that have never loaded are skipped.
func (ce *CatalogExecutor) Targets(collection string) ([]Target, error) {
	if collection != "" {
		e, err := ce.collections.Get(collection)
		if err != nil {
			return nil, err
		}
		store, err := e.Store()
		if err != nil {
			return nil, err
		}
		return []Target{{Collection: collection, Store: store}}, nil
	}

	engines := ce.collections.Engines()
	targets := make([]Target, 0, len(engines))
	for _, e := range engines {
		store, err := e.Store()
		if err != nil {
			ce.logger.Warn("skipping unavailable collection", "collection", e.Name(), "error", err)
			continue
		}
		targets = append(targets, Target{Collection: e.Name(), Store: store})
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no collection is loaded: %w", apperrors.ErrIndexUnavailable)
	}
	return targets, nil
}

// Execute resolves targets for collection and runs plan against them.
func (ce *CatalogExecutor) Execute(ctx context.Context, plan *parser.QueryPlan, collection string, limit int) (*SearchResult, error) {
	targets, err := ce.Targets(collection)
	if err != nil {
		return nil, err
	}
	return ce.ExecuteOn(ctx, targets, plan, limit)
}

// ExecuteOn queries each target concurrently and merges the rankings.
func (ce *CatalogExecutor) ExecuteOn(ctx context.Context, targets []Target, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	type result struct {
		res *SearchResult
		err error
	}
	results := make([]result, len(targets))
	var wg sync.WaitGroup
	for i, t := range targets {
		wg.Add(1)
		go func(idx int, t Target) {
			defer wg.Done()
			res, err := New(t.Collection, t.Store, ce.opts).Execute(ctx, plan, limit)
			if err != nil {
				err = fmt.Errorf("collection %s: %w", t.Collection, err)
			}
			results[idx] = result{res: res, err: err}
		}(i, t)
	}
	wg.Wait()

	merged := &SearchResult{
		Query:       plan.RawQuery,
		Collections: make([]string, 0, len(targets)),
		TermStats:   make(map[string]int),
	}
	lists := make([][]ranker.ScoredDoc, 0, len(targets))
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		merged.Collections = append(merged.Collections, r.res.Collections...)
		merged.TotalHits += r.res.TotalHits
		for term, n := range r.res.TermStats {
			merged.TermStats[term] += n
		}
		lists = append(lists, r.res.Results)
	}
	merged.Results = merger.Merge(lists, limit)

	ce.logger.Info("query executed",
		"query", plan.RawQuery,
		"collections", len(targets),
		"total_hits", merged.TotalHits,
		"results", len(merged.Results),
	)
	return merged, nil
}
