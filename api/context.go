// Package api wires the domain services to HTTP handlers and registers
// them against the route table in domain/routing (spec.md §6).
package api

import (
	"net/http"

	"github.com/boringdata/boring-ui-controlplane/domain/identity"
	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/httputil"
)

// callerIdentity pulls the authenticated user id from the request's
// session claims, failing with auth_required if the auth guard never ran
// (should not happen on a protected route, but a handler must never trust
// an absent guard silently).
func callerIdentity(r *http.Request) (userID string, ok bool) {
	claims, ok := identity.SessionClaimsFromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.UserID, true
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := callerIdentity(r)
	if !ok {
		httputil.WriteError(w, cperrors.AuthRequired())
		return "", false
	}
	return userID, true
}
