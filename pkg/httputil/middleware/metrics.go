package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/edgeflare/tablegate/pkg/metrics"
)

// Metrics records request counts and latencies by route pattern. It must sit
// directly outside the mux and pass the request through unchanged, so the
// pattern the mux matched is visible once the handler returns.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := NewResponseRecorder(w)

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.StatusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
