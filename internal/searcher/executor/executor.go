// Package executor runs query plans against loaded index stores. A
// QueryEngine answers for one store; the CatalogExecutor fans a plan out
// across collections and merges the rankings.
package executor

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
)

type SearchResult struct {
	Query       string             `json:"query"`
	Collections []string           `json:"collections"`
	TotalHits   int                `json:"total_hits"`
	Results     []ranker.ScoredDoc `json:"results"`
	TermStats   map[string]int     `json:"term_stats"`
}

// Options tune matching.
type Options struct {
	Weights      ranker.Weights
	PartialMatch bool
}

// QueryEngine evaluates plans against a single store. It holds the store
// it was built with, so a reload never changes the answer mid-query.
type QueryEngine struct {
	collection string
	store      *index.Store
	opts       Options
	logger     *slog.Logger
}

func New(collection string, store *index.Store, opts Options) *QueryEngine {
	if opts.Weights == (ranker.Weights{}) {
		opts.Weights = ranker.DefaultWeights()
	}
	return &QueryEngine{
		collection: collection,
		store:      store,
		opts:       opts,
		logger:     slog.Default().With("component", "query-engine", "collection", collection),
	}
}

// Execute ranks the documents matching plan. Unmatched and empty plans
// produce an empty result, not an error; only a cancelled ctx fails.
func (q *QueryEngine) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	result := &SearchResult{
		Query:       plan.RawQuery,
		Collections: []string{q.collection},
		Results:     []ranker.ScoredDoc{},
		TermStats:   make(map[string]int),
	}
	if plan.Empty() {
		return result, nil
	}

	acc := ranker.NewAccumulator(q.opts.Weights)
	for _, term := range plan.Terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body := q.store.LookupBody(term)
		title := q.store.LookupTitle(term)
		acc.Add(term, ranker.FieldTerm, body)
		acc.Add(term, ranker.FieldTitle, title)
		hits := len(q.store.Lookup(term))

		if q.opts.PartialMatch {
			for _, other := range q.store.TermsContaining(term) {
				acc.Add(term, ranker.FieldPartialTerm, q.store.LookupBody(other))
				acc.Add(term, ranker.FieldPartialTitle, q.store.LookupTitle(other))
			}
		}
		if hits > 0 {
			result.TermStats[term] = hits
		}
	}
	for _, term := range plan.ExcludeTerms {
		acc.Exclude(q.store.Lookup(term))
	}

	ranked, total := acc.Rank(limit)
	for i := range ranked {
		q.describe(&ranked[i])
	}
	result.Results = ranked
	result.TotalHits = total

	q.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"total_hits", total,
		"results", len(ranked),
	)
	return result, nil
}

func (q *QueryEngine) describe(doc *ranker.ScoredDoc) {
	doc.Collection = q.collection
	if name, err := q.store.DocName(doc.DocID); err == nil {
		doc.DocName = name
	}
	if title, err := q.store.PlainTitleOf(doc.DocID); err == nil {
		doc.Title = title
	}
}
