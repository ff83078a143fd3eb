package middleware

import (
	"net/http"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/httputil"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/security"
)

var mutatingMethods = map[string]struct{}{
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// SessionCSRFToken looks up the CSRF token bound to the request's session.
// It returns ok=false when the request carries no session (the caller
// decides whether that is itself an error; CSRF enforces the double-submit
// check only once a session exists).
type SessionCSRFToken func(r *http.Request) (token string, ok bool)

// CSRF rejects mutating requests whose X-CSRF-Token header does not match
// the token bound to the caller's session. Comparison is timing-safe, the
// same constant-time pattern the upstream header gate uses for its shared
// secret.
func CSRF(lookup SessionCSRFToken) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, mutating := mutatingMethods[r.Method]; !mutating {
				next.ServeHTTP(w, r)
				return
			}

			expected, ok := lookup(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			supplied := r.Header.Get("X-CSRF-Token")
			if supplied == "" || !security.ConstantTimeEqual(supplied, expected) {
				httputil.WriteError(w, cperrors.CSRFInvalid())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
