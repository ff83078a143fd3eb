package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/boringdata/boring-ui-controlplane/infrastructure/metrics"
)

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}

// Metrics records the request counters/histogram/in-flight gauge described
// in spec.md §4.13.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			wrapped, ok := w.(*responseWriter)
			if !ok {
				wrapped = &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			}
			next.ServeHTTP(wrapped, r)

			m.RecordHTTPRequest(r.Method, r.URL.Path, statusClass(wrapped.Status()), time.Since(start))
		})
	}
}
