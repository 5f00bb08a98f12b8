package mid

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aerodados/rab-proxy/pkg/metrics"
)

// RouteFunc names the route a request matched. It must return a bounded set
// of values, never the raw path.
type RouteFunc func(*http.Request) string

// MuxRoute resolves requests against mux and returns the matched pattern, or
// "unmatched" when no pattern applies.
func MuxRoute(mux *http.ServeMux) RouteFunc {
	return func(r *http.Request) string {
		if _, pattern := mux.Handler(r); pattern != "" {
			return pattern
		}
		return "unmatched"
	}
}

// Metrics records request latency per route and counts requests per route and
// status code.
func Metrics(reg *metrics.Registry, route RouteFunc) Middleware {
	latency := reg.HistogramVec("http_request_duration_seconds", "HTTP request latency", nil, "route")
	requests := reg.CounterVec("http_requests_total", "HTTP requests served", "route", "code")
	inflight := reg.Gauge("http_requests_in_flight", "HTTP requests being served")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			inflight.Inc()
			defer inflight.Dec()

			name := route(r)
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			latency.With(name).Since(start)
			requests.With(name, strconv.Itoa(sw.status)).Inc()
		})
	}
}
