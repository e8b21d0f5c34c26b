// Package e2e contains end-to-end tests against running processes: the
// searcher (HTTP and RPC) and, when present, the analytics service. Start
// them with configs/development.yaml, which serves the bundled tutorial
// index as collection "tutorial". Every test skips when its target is not
// reachable.
//
// Run with:
//
//	go test -v -timeout=120s ./test/e2e/...
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/rpc"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/proto"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

type e2eConfig struct {
	SearcherURL  string
	SearcherRPC  string
	AnalyticsURL string
	Collection   string
	APIKey       string
}

func loadE2EConfig() e2eConfig {
	return e2eConfig{
		SearcherURL:  envOrDefault("E2E_SEARCHER_URL", "http://localhost:8080"),
		SearcherRPC:  envOrDefault("E2E_SEARCHER_RPC", "localhost:9091"),
		AnalyticsURL: envOrDefault("E2E_ANALYTICS_URL", "http://localhost:8083"),
		Collection:   envOrDefault("E2E_COLLECTION", "tutorial"),
		APIKey:       os.Getenv("E2E_API_KEY"),
	}
}

var client = &http.Client{Timeout: 10 * time.Second}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Skipf("service unavailable: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestPlatformHealth verifies the services respond to health checks.
func TestPlatformHealth(t *testing.T) {
	cfg := loadE2EConfig()

	services := []struct {
		name string
		url  string
	}{
		{"search /health/live", cfg.SearcherURL + "/health/live"},
		{"search /health/ready", cfg.SearcherURL + "/health/ready"},
		{"analytics /health/live", cfg.AnalyticsURL + "/health/live"},
	}
	for _, svc := range services {
		t.Run(svc.name, func(t *testing.T) {
			resp, err := client.Get(svc.url)
			if err != nil {
				t.Skipf("service unavailable: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("expected 200, got %d: %s", resp.StatusCode, body)
			}
		})
	}
}

// TestSearchTutorial checks ranking of the bundled tutorial index over
// HTTP.
func TestSearchTutorial(t *testing.T) {
	cfg := loadE2EConfig()

	var result struct {
		TotalHits int `json:"total_hits"`
		Results   []struct {
			DocID   int    `json:"doc_id"`
			DocName string `json:"docname"`
		} `json:"results"`
	}
	status := getJSON(t, fmt.Sprintf("%s/api/v1/search?q=python+-list&collection=%s", cfg.SearcherURL, cfg.Collection), &result)
	require.Equal(t, http.StatusOK, status)
	if result.TotalHits == 0 {
		t.Skip("collection does not serve the tutorial index")
	}
	for _, r := range result.Results {
		assert.NotEqual(t, "rst/type_list", r.DocName, "excluded document returned")
	}

	var doc struct {
		PlainTitle string `json:"plain_title"`
	}
	status = getJSON(t, fmt.Sprintf("%s/api/v1/collections/%s/documents/%d", cfg.SearcherURL, cfg.Collection, result.Results[0].DocID), &doc)
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, doc.PlainTitle)
}

// TestSearchOverRPC runs the same query over the RPC listener and expects
// the HTTP ranking.
func TestSearchOverRPC(t *testing.T) {
	cfg := loadE2EConfig()
	c, err := rpc.Dial(cfg.SearcherRPC, 2*time.Second)
	if err != nil {
		t.Skipf("rpc listener unavailable: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SERVING", health.Status)

	resp, err := c.Search(ctx, &proto.SearchRequest{Query: "python list", Collection: cfg.Collection, Limit: 5})
	require.NoError(t, err)

	var httpResult struct {
		Results []struct {
			DocID int32 `json:"doc_id"`
		} `json:"results"`
	}
	getJSON(t, fmt.Sprintf("%s/api/v1/search?q=python+list&limit=5&collection=%s", cfg.SearcherURL, cfg.Collection), &httpResult)
	require.Len(t, resp.Results, len(httpResult.Results))
	for i := range resp.Results {
		assert.Equal(t, httpResult.Results[i].DocID, resp.Results[i].DocID)
	}
}

// TestPublishAndReload installs a one-page index into a collection and
// waits until search reflects it, then restores the previous index.
func TestPublishAndReload(t *testing.T) {
	cfg := loadE2EConfig()
	if cfg.APIKey == "" {
		t.Skip("E2E_API_KEY not set")
	}

	var before struct {
		Collections []struct {
			Name string `json:"name"`
			Path string `json:"path"`
		} `json:"collections"`
	}
	getJSON(t, cfg.SearcherURL+"/api/v1/collections", &before)

	unique := fmt.Sprintf("zeta%d", time.Now().UnixNano())
	b := index.NewBuilder(tokenizer.Analyzer{})
	b.AddDocument("e2e/page", "e2e/page.rst", "End to end", "This page mentions "+unique+".")
	body := segment.Marshal(b.Build(), segment.FormatJS)

	put := func(payload []byte) int {
		req, err := http.NewRequest(http.MethodPut,
			fmt.Sprintf("%s/api/v1/collections/%s/index", cfg.SearcherURL, cfg.Collection), bytes.NewReader(payload))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	for _, c := range before.Collections {
		if c.Name != cfg.Collection {
			continue
		}
		if original, err := os.ReadFile(c.Path); err == nil {
			t.Cleanup(func() { put(original) })
		}
	}
	require.Equal(t, http.StatusCreated, put(body))

	var found bool
	for attempt := 0; attempt < 20 && !found; attempt++ {
		var result struct {
			TotalHits int `json:"total_hits"`
		}
		getJSON(t, fmt.Sprintf("%s/api/v1/search?q=%s&collection=%s", cfg.SearcherURL, unique, cfg.Collection), &result)
		found = result.TotalHits == 1
		if !found {
			time.Sleep(500 * time.Millisecond)
		}
	}
	assert.True(t, found, "published page not searchable within 10s")
}

// TestSearchAnalytics verifies that searches reach the analytics endpoint.
func TestSearchAnalytics(t *testing.T) {
	cfg := loadE2EConfig()
	getJSON(t, cfg.SearcherURL+"/api/v1/search?q=analytics+test", nil)

	var stats struct {
		TotalSearches int64 `json:"total_searches"`
		CacheHits     int64 `json:"cache_hits"`
		CacheMisses   int64 `json:"cache_misses"`
	}
	status := getJSON(t, cfg.SearcherURL+"/api/v1/analytics", &stats)
	require.Equal(t, http.StatusOK, status)
	t.Logf("analytics: total_searches=%d cache_hits=%d cache_misses=%d",
		stats.TotalSearches, stats.CacheHits, stats.CacheMisses)
	assert.GreaterOrEqual(t, stats.TotalSearches, int64(1))
}

// TestSearchCacheStats verifies that cache statistics are reported.
func TestSearchCacheStats(t *testing.T) {
	cfg := loadE2EConfig()

	var stats map[string]any
	status := getJSON(t, cfg.SearcherURL+"/api/v1/cache/stats", &stats)
	require.Equal(t, http.StatusOK, status)
	if stats["status"] == "disabled" {
		t.Log("cache is disabled, skipping field check")
		return
	}
	for _, field := range []string{"hits", "misses", "total", "hit_rate"} {
		assert.Contains(t, stats, field)
	}
}

// ---------------------------------------------------------------------------
// Env helpers
// ---------------------------------------------------------------------------

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
