package middleware

import (
	"net/http"
	"time"

	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
)

// responseWriter wraps http.ResponseWriter to capture the status code for
// logging/metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.statusCode = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Status() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}

// Correlation implements request-lifecycle stage [1] from spec.md §2:
// it reads (or, when TrustInboundRequestID is false, generates) X-Request-ID,
// attaches it to the response and to the request context, and logs the
// completed request. Response headers X-Request-ID are set before any body
// write (spec.md §5's ordering guarantee), since this middleware wraps
// every downstream handler.
func Correlation(logger *logging.Logger, trustInboundRequestID bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := ""
			if trustInboundRequestID {
				requestID = r.Header.Get("X-Request-ID")
			}
			if requestID == "" {
				requestID = logging.NewRequestID()
			}

			ctx := logging.WithRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)

			w.Header().Set("X-Request-ID", requestID)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			logger.LogRequest(ctx, r.Method, r.URL.Path, wrapped.Status(), time.Since(start))
		})
	}
}
