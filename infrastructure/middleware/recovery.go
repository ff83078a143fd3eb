// Package middleware provides the control plane's HTTP middleware chain
// (spec.md §2's request lifecycle).
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/httputil"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
)

// Recovery recovers from panics in downstream handlers, logs them with a
// stack trace, and returns a generic 500 without leaking panic internals.
func Recovery(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithContext(r.Context()).WithFields(map[string]interface{}{
						"panic":  fmt.Sprintf("%v", rec),
						"stack":  string(debug.Stack()),
						"path":   r.URL.Path,
						"method": r.Method,
					}).Error("panic recovered")

					httputil.WriteError(w, cperrors.Internal(fmt.Errorf("%v", rec)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
