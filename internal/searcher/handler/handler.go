// Package handler exposes search, document inspection and collection
// management over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

// Catalog is the view of the collection catalog the handler needs.
// *catalog.Catalog satisfies it.
type Catalog interface {
	executor.Collections
	Stats() []indexer.Stats
}

// Options carries the optional collaborators. Zero values disable them.
type Options struct {
	Search  config.SearchConfig
	Cache   *cache.QueryCache
	Tracker analytics.Tracker
	Metrics *metrics.Metrics
	Tracing bool
}

type Handler struct {
	catalog  Catalog
	executor *executor.CatalogExecutor
	parser   *parser.Parser
	analyzer tokenizer.Analyzer
	opts     Options
	logger   *slog.Logger
}

func New(cat Catalog, exec *executor.CatalogExecutor, analyzer tokenizer.Analyzer, opts Options) *Handler {
	if opts.Search.DefaultLimit <= 0 {
		opts.Search.DefaultLimit = 10
	}
	if opts.Search.MaxResults <= 0 {
		opts.Search.MaxResults = 100
	}
	return &Handler{
		catalog:  cat,
		executor: exec,
		parser:   parser.New(analyzer),
		analyzer: analyzer,
		opts:     opts,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the search and collection routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/collections", h.Collections)
	mux.HandleFunc("GET /api/v1/collections/{collection}/documents/{id}", h.Document)
	mux.HandleFunc("GET /api/v1/collections/{collection}/terms/{term}", h.Term)
	mux.HandleFunc("POST /api/v1/collections/{collection}/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	collection := r.URL.Query().Get("collection")

	limit := h.opts.Search.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.opts.Search.MaxResults {
			parsed = h.opts.Search.MaxResults
		}
		limit = parsed
	}

	plan := h.parser.Parse(query)
	if plan.Empty() {
		h.writeJSON(w, http.StatusOK, &executor.SearchResult{
			Query:       query,
			Collections: []string{},
			Results:     []ranker.ScoredDoc{},
			TermStats:   map[string]int{},
		})
		return
	}

	var span *tracing.Span
	if h.opts.Tracing {
		ctx, span = tracing.Start(ctx, "search", middleware.GetRequestID(ctx))
		span.SetAttr("query", query)
		defer func() {
			span.End()
			span.Log(log)
		}()
	}

	targets, err := h.executor.Targets(collection)
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	compute := func() (*executor.SearchResult, error) {
		execCtx, execSpan := tracing.StartChild(ctx, "execute")
		defer execSpan.End()
		execSpan.SetAttr("collections", len(targets))
		return h.executor.ExecuteOn(execCtx, targets, plan, limit)
	}

	var result *executor.SearchResult
	cacheHit := false
	if h.opts.Cache.Enabled() {
		key := cache.Key(targets, plan, limit, h.opts.Search.PartialMatch)
		result, cacheHit, err = h.opts.Cache.GetOrCompute(ctx, key, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.writeAppError(w, err)
		return
	}

	elapsed := time.Since(start)
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	h.opts.Metrics.RecordSearch(collection, cacheStatus, elapsed.Seconds(), result.TotalHits)
	span.SetAttr("total_hits", result.TotalHits)
	span.SetAttr("cache_hit", cacheHit)

	log.Info("search completed",
		"query", query,
		"collection", collection,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", elapsed.Milliseconds(),
	)

	if h.opts.Tracker != nil {
		eventType := analytics.EventCacheMiss
		if cacheHit {
			eventType = analytics.EventCacheHit
		}
		if result.TotalHits == 0 {
			eventType = analytics.EventZeroResult
		}
		h.opts.Tracker.Track(analytics.SearchEvent{
			Type:            eventType,
			Query:           query,
			Collection:      collection,
			Terms:           plan.Terms,
			TotalHits:       result.TotalHits,
			Returned:        len(result.Results),
			LatencyMs:       elapsed.Milliseconds(),
			CacheHit:        cacheHit,
			CollectionCount: len(targets),
			Timestamp:       time.Now().UTC(),
			RequestID:       middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Collections(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"collections": h.catalog.Stats()})
}

// DocumentView is the JSON shape of one document.
type DocumentView struct {
	Collection string          `json:"collection"`
	ID         index.DocID     `json:"id"`
	DocName    string          `json:"docname"`
	FileName   string          `json:"filename,omitempty"`
	Title      string          `json:"title"`
	PlainTitle string          `json:"plain_title"`
	TOC        []index.Section `json:"toc"`
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "document id must be an integer")
		return
	}
	store, err := h.store(collection)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	view, err := Describe(collection, store, index.DocID(id))
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// Describe collects everything the store knows about doc.
func Describe(collection string, store *index.Store, doc index.DocID) (*DocumentView, error) {
	name, err := store.DocName(doc)
	if err != nil {
		return nil, err
	}
	view := &DocumentView{Collection: collection, ID: doc, DocName: name}
	// once DocName succeeded the id is valid, so these cannot fail
	view.FileName, _ = store.FileName(doc)
	view.Title, _ = store.TitleOf(doc)
	view.PlainTitle, _ = store.PlainTitleOf(doc)
	view.TOC, _ = store.TocOf(doc)
	return view, nil
}

// TermView reports the postings for one normalised term.
type TermView struct {
	Collection string        `json:"collection"`
	Term       string        `json:"term"`
	Normalized string        `json:"normalized"`
	Body       []index.DocID `json:"body"`
	Title      []index.DocID `json:"title"`
}

func (h *Handler) Term(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	store, err := h.store(collection)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, LookupTerm(h.analyzer, collection, store, r.PathValue("term")))
}

// LookupTerm normalises raw the way queries are normalised and returns its
// postings. Words the analyzer drops are looked up verbatim.
func LookupTerm(analyzer tokenizer.Analyzer, collection string, store *index.Store, raw string) *TermView {
	key := raw
	if n, ok := analyzer.Normalize(raw); ok {
		key = n
	}
	view := &TermView{
		Collection: collection,
		Term:       raw,
		Normalized: key,
		Body:       store.LookupBody(key),
		Title:      store.LookupTitle(key),
	}
	if view.Body == nil {
		view.Body = []index.DocID{}
	}
	if view.Title == nil {
		view.Title = []index.DocID{}
	}
	return view
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	e, err := h.catalog.Get(collection)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	changed, err := e.Reload(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("manual reload failed", "collection", collection, "error", err)
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"collection": collection,
		"changed":    changed,
		"stats":      e.Stats(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if !h.opts.Cache.Enabled() {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.opts.Cache.Stats()
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
		"breaker":  h.opts.Cache.BreakerState(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if !h.opts.Cache.Enabled() {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	var (
		deleted int64
		err     error
	)
	if collection := r.URL.Query().Get("collection"); collection != "" {
		deleted, err = h.opts.Cache.InvalidateCollection(r.Context(), collection)
	} else {
		deleted, err = h.opts.Cache.Invalidate(r.Context())
	}
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) store(collection string) (*index.Store, error) {
	e, err := h.catalog.Get(collection)
	if err != nil {
		return nil, err
	}
	return e.Store()
}

// InvalidateOnReload returns a reload hook that drops cached results of
// the reloaded collection and records the reload.
func InvalidateOnReload(c *cache.QueryCache, tracker analytics.Tracker) indexer.ReloadHook {
	return func(collection string, _, current *index.Store) {
		if c.Enabled() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := c.InvalidateCollection(ctx, collection); err != nil {
				slog.Default().Warn("cache invalidation after reload failed", "collection", collection, "error", err)
			}
			cancel()
		}
		if tracker != nil {
			tracker.Track(analytics.ReloadEvent{
				Type:       analytics.EventReload,
				Collection: collection,
				Checksum:   current.Checksum(),
				Documents:  current.NumDocs(),
				Terms:      current.NumTerms(),
				Timestamp:  time.Now().UTC(),
			})
		}
	}
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "search failed"
	}
	h.writeError(w, status, msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
