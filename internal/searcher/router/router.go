// Package router wires the search service routes and applies the
// middleware chain (RequestID → CORS → RateLimit → Metrics → Timeout →
// API key).
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish/apikey"
	publishhandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish/handler"
	searchhandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
)

// Deps collects the handlers and cross-cutting pieces the router mounts.
// Publish, Analytics, Keys, Limiter and Metrics may be nil. With Keys set,
// every non-read request needs a valid API key.
type Deps struct {
	Search    *searchhandler.Handler
	Publish   *publishhandler.Handler
	Analytics *analytics.Handler
	Keys      apikey.Validator
	Health    *health.Checker
	Limiter   *middleware.RateLimiter
	Metrics   *metrics.Metrics
	CORS      middleware.CORSConfig
	Timeout   time.Duration
}

// New builds the full HTTP handler.
//
// Route table:
//
//	GET    /api/v1/search
//	GET    /api/v1/collections
//	GET    /api/v1/collections/{collection}/documents/{id}
//	GET    /api/v1/collections/{collection}/terms/{term}
//	POST   /api/v1/collections/{collection}/reload
//	PUT    /api/v1/collections/{collection}/index
//	GET    /api/v1/collections/{collection}/builds
//	GET    /api/v1/cache/stats
//	POST   /api/v1/cache/invalidate
//	GET    /api/v1/analytics
//	GET    /api/v1/analytics/history
//	GET    /health/live, /health/ready
//	GET    /metrics
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	d.Search.Register(mux)
	if d.Publish != nil {
		d.Publish.Register(mux)
	}
	if d.Analytics != nil {
		mux.HandleFunc("GET /api/v1/analytics", d.Analytics.Stats)
		mux.HandleFunc("GET /api/v1/analytics/history", d.Analytics.History)
	}

	mux.HandleFunc("GET /health/live", d.Health.LiveHandler())
	mux.HandleFunc("GET /health/ready", d.Health.ReadyHandler())
	if d.Metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	// applied inside-out
	var chain http.Handler = mux
	if d.Keys != nil {
		chain = apikey.Require(d.Keys)(chain)
	}
	if d.Timeout > 0 {
		chain = middleware.Timeout(d.Timeout)(chain)
	}
	if d.Metrics != nil {
		chain = middleware.Metrics(d.Metrics)(chain)
	}
	if d.Limiter != nil {
		chain = middleware.RateLimit(d.Limiter, d.Metrics)(chain)
	}
	chain = middleware.CORS(d.CORS)(chain)
	chain = middleware.RequestID(chain)

	return chain
}
