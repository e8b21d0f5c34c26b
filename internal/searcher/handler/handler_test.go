package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/catalog"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

type mapBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *mapBackend) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *mapBackend) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *mapBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

type recordingTracker struct {
	mu     sync.Mutex
	events []any
}

func (r *recordingTracker) Track(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

type fixture struct {
	mux     *http.ServeMux
	tracker *recordingTracker
	cache   *cache.QueryCache
	store   *index.Store
}

func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	store, err := segment.Load("../../indexer/segment/testdata/searchindex.js")
	require.NoError(t, err)

	cat := catalog.FromEngines(indexer.NewStaticEngine("tutorial", store))
	m := metrics.New(prometheus.NewRegistry())
	var qc *cache.QueryCache
	if withCache {
		qc = cache.New(&mapBackend{data: map[string]string{}}, config.RedisConfig{CacheTTL: time.Minute}, m)
	}
	tracker := &recordingTracker{}
	h := New(cat, executor.NewCatalog(cat, executor.Options{}), tokenizer.Analyzer{}, Options{
		Search:  config.SearchConfig{DefaultLimit: 10, MaxResults: 50},
		Cache:   qc,
		Tracker: tracker,
		Metrics: m,
		Tracing: true,
	})
	mux := http.NewServeMux()
	h.Register(mux)
	return &fixture{mux: mux, tracker: tracker, cache: qc, store: store}
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func resultIDs(res *executor.SearchResult) []index.DocID {
	out := make([]index.DocID, len(res.Results))
	for i, d := range res.Results {
		out[i] = d.DocID
	}
	return out
}

func TestSearchRanksAcrossCatalog(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/v1/search?q=python+list")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[*executor.SearchResult](t, rec)
	assert.Equal(t, []index.DocID{0, 1, 3, 7, 2, 4, 5}, resultIDs(res))
	assert.Equal(t, []string{"tutorial"}, res.Collections)

	rec = f.do(t, http.MethodGet, "/api/v1/search?q=python+-list&collection=tutorial&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[*executor.SearchResult](t, rec)
	assert.Equal(t, []index.DocID{2, 4}, resultIDs(res))
	assert.Equal(t, 3, res.TotalHits)

	require.Len(t, f.tracker.events, 2)
	ev := f.tracker.events[1].(analytics.SearchEvent)
	assert.Equal(t, "tutorial", ev.Collection)
	assert.Equal(t, analytics.EventCacheMiss, ev.Type)
	assert.Equal(t, 2, ev.Returned)
}

func TestSearchEdgeCases(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/v1/search?q=")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[*executor.SearchResult](t, rec)
	assert.Empty(t, res.Results)
	assert.NotNil(t, res.Results)

	rec = f.do(t, http.MethodGet, "/api/v1/search?q=zzzyzzy")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[*executor.SearchResult](t, rec).TotalHits)
	assert.Equal(t, analytics.EventZeroResult, f.tracker.events[0].(analytics.SearchEvent).Type)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/search?q=python&limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/search?q=python&limit=0").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/search?q=python&collection=nope").Code)
}

func TestSearchUsesCache(t *testing.T) {
	f := newFixture(t, true)

	first := f.do(t, http.MethodGet, "/api/v1/search?q=python")
	second := f.do(t, http.MethodGet, "/api/v1/search?q=PYTHON")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	hits, misses := f.cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.True(t, f.tracker.events[1].(analytics.SearchEvent).CacheHit)

	rec := f.do(t, http.MethodGet, "/api/v1/cache/stats")
	stats := decode[map[string]any](t, rec)
	assert.Equal(t, "50.0%", stats["hit_rate"])
	assert.Equal(t, "closed", stats["breaker"])

	rec = f.do(t, http.MethodPost, "/api/v1/cache/invalidate?collection=tutorial")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["keys_deleted"])
}

func TestCacheRoutesWhenDisabled(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/api/v1/cache/stats")
	assert.Equal(t, "disabled", decode[map[string]string](t, rec)["status"])
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodPost, "/api/v1/cache/invalidate").Code)
}

func TestDocumentRoute(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/v1/collections/tutorial/documents/7")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[DocumentView](t, rec)
	assert.Equal(t, "rst/type_list", doc.DocName)
	assert.Equal(t, "The list data type", doc.PlainTitle)
	assert.NotEmpty(t, doc.TOC)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/collections/tutorial/documents/99").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/collections/tutorial/documents/x").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/collections/nope/documents/0").Code)
}

func TestTermRoute(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/v1/collections/tutorial/terms/Python")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[TermView](t, rec)
	assert.Equal(t, "python", view.Normalized)
	assert.Equal(t, []index.DocID{7}, view.Body)
	assert.Equal(t, []index.DocID{0, 1, 2, 3, 4, 5}, view.Title)

	rec = f.do(t, http.MethodGet, "/api/v1/collections/tutorial/terms/zzzyzzy")
	view = decode[TermView](t, rec)
	assert.Empty(t, view.Body)
	assert.NotNil(t, view.Title)
}

func TestCollectionsAndReload(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/v1/collections")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string][]indexer.Stats](t, rec)
	require.Len(t, body["collections"], 1)
	assert.Equal(t, 8, body["collections"][0].Documents)

	// static engines have no file to re-read
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/collections/tutorial/reload").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/v1/collections/nope/reload").Code)
}

func TestInvalidateOnReload(t *testing.T) {
	f := newFixture(t, true)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/search?q=python").Code)

	hook := InvalidateOnReload(f.cache, f.tracker)
	hook("tutorial", nil, f.store)

	require.Len(t, f.tracker.events, 2)
	ev := f.tracker.events[1].(analytics.ReloadEvent)
	assert.Equal(t, "tutorial", ev.Collection)
	assert.Equal(t, f.store.Checksum(), ev.Checksum)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/search?q=python").Code)
	hits, _ := f.cache.Stats()
	assert.Zero(t, hits)
}
