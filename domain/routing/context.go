package routing

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/boringdata/boring-ui-controlplane/domain/identity"
	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/httputil"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
)

// WorkspaceLookup resolves a workspace's owning app_id, used by the
// app-context middleware to detect cross-app workspace access.
type WorkspaceLookup func(ctx context.Context, workspaceID string) (appID string, found bool)

// WorkspaceContext assembles and validates the request's workspace id from
// up to three sources (spec.md §4.4): the URL path, the X-Workspace-ID
// header, and the caller's session claims. All present sources must agree;
// any disagreement is a workspace_context_mismatch naming every source.
func WorkspaceContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sources := map[string]interface{}{}

			pathID := mux.Vars(r)["workspace_id"]
			if pathID != "" {
				sources["path"] = pathID
			}

			headerID := r.Header.Get("X-Workspace-ID")
			if headerID != "" {
				sources["header"] = headerID
			}

			var sessionID string
			if claims, ok := identity.SessionClaimsFromContext(r.Context()); ok && claims.WorkspaceID != "" {
				sessionID = claims.WorkspaceID
				sources["session"] = sessionID
			}

			resolved := firstNonEmpty(pathID, headerID, sessionID)
			if resolved == "" {
				httputil.WriteError(w, cperrors.WorkspaceNotFound())
				return
			}

			for _, v := range sources {
				if v.(string) != resolved {
					httputil.WriteError(w, cperrors.WorkspaceContextMismatch(sources))
					return
				}
			}

			ctx := logging.WithWorkspaceID(r.Context(), resolved)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// AppContext compares the host-resolved app_id against the workspace's
// stored app_id, rejecting a request that names a workspace belonging to a
// different application than the one the request arrived on. Per
// spec.md §4.4, "when either value is absent (non-workspace route or
// unresolved host) the check is a no-op" — an unresolvable host never
// fails this middleware; handlers that actually need the app_id surface
// app_config_not_found themselves (app-config resolves the host on its own;
// workspace create rejects a request that carries no resolved app_id).
func AppContext(resolver *identity.HostResolver, lookup WorkspaceLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestAppID, err := resolver.Resolve(r.Host)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			workspaceID := mux.Vars(r)["workspace_id"]
			if workspaceID != "" {
				ownerAppID, found := lookup(r.Context(), workspaceID)
				if found && ownerAppID != requestAppID {
					httputil.WriteError(w, cperrors.AppContextMismatch())
					return
				}
			}

			ctx := logging.WithAppID(r.Context(), requestAppID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
