package middleware

import "net/http"

const defaultMaxBodyBytes = 2 << 20 // 2MiB

// BodyLimit caps request bodies to reduce memory/CPU exhaustion risk on the
// public-facing control plane.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
