// Package middleware provides reusable HTTP middleware: request IDs, CORS,
// per-client rate limiting, Prometheus metrics and request timeouts.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// Metrics records request count, latency and the in-flight gauge, labelled
// by route rather than raw path.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)

			route := normalizePath(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.Status())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// statusWriter remembers the first status written.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.ResponseWriter.Write(b)
}

// Status is 200 when the handler wrote nothing.
func (sw *statusWriter) Status() int {
	if sw.status == 0 {
		return http.StatusOK
	}
	return sw.status
}

// normalizePath collapses the variable segments of collection routes so
// label cardinality stays bounded:
// /api/v1/collections/{collection}/{documents|terms}/{id|term}.
func normalizePath(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/v1/collections/")
	if !ok || rest == "" {
		return path
	}
	parts := strings.SplitN(rest, "/", 3)
	parts[0] = "{collection}"
	if len(parts) == 3 {
		switch parts[1] {
		case "documents":
			parts[2] = "{id}"
		case "terms":
			parts[2] = "{term}"
		}
	}
	return "/api/v1/collections/" + strings.Join(parts, "/")
}
