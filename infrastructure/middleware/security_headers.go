package middleware

import "net/http"

// SecurityHeaders sets a conservative baseline of response headers on every
// control-plane response (never on proxied workspace-runtime responses,
// which carry their own headers unmodified aside from redaction).
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Deprecation sets the RFC 8594 headers spec.md §6 requires on legacy
// routes: Deprecation, Sunset, and a successor-version Link.
func Deprecation(sunsetISO8601, successorURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Deprecation", "true")
			if sunsetISO8601 != "" {
				w.Header().Set("Sunset", sunsetISO8601)
			}
			if successorURL != "" {
				w.Header().Set("Link", "<"+successorURL+">; rel=\"successor-version\"")
			}
			next.ServeHTTP(w, r)
		})
	}
}
