package main

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boringdata/boring-ui-controlplane/api"
	"github.com/boringdata/boring-ui-controlplane/domain/identity"
	"github.com/boringdata/boring-ui-controlplane/domain/provisioning"
	"github.com/boringdata/boring-ui-controlplane/domain/proxy"
	"github.com/boringdata/boring-ui-controlplane/domain/routing"
	"github.com/boringdata/boring-ui-controlplane/domain/sharelink"
	"github.com/boringdata/boring-ui-controlplane/domain/workspace"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/metrics"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/middleware"
)

// registerRoutes registers each route with its handler directly on router
// (domain/routing.DefaultTable is not consulted here). A per-caller rate
// limit is installed on the whole router, and the workspace-context
// middleware on the /api/v1/workspaces/{workspace_id} subrouter
// (spec.md §4.4, §4.7).
func registerRoutes(
	router *mux.Router,
	logger *logging.Logger,
	m *metrics.Metrics,
	guard *identity.AuthGuard,
	workspaceService *workspace.Service,
	provisioningService *provisioning.Service,
	shareLinkService *sharelink.Service,
	proxyHandler *proxy.Handler,
	repos *repositories,
	authHandlers *api.AuthHandlers,
	appConfigHandlers *api.AppConfigHandlers,
	sessionHandlers *api.SessionHandlers,
) {
	limiter := middleware.NewRateLimiter(120, time.Minute, 30, logger)
	router.Use(limiter.Handler(rateLimitKey))

	workspaceHandlers := api.NewWorkspaceHandlers(workspaceService, func(r *http.Request) string {
		return logging.AppID(r.Context())
	})
	provisioningHandlers := api.NewProvisioningHandlers(provisioningService)
	shareLinkHandlers := api.NewShareLinkHandlers(shareLinkService)

	router.HandleFunc("/health", api.Health).Methods(http.MethodGet)
	router.HandleFunc("/ready", api.Ready(func() error { return repos.ping() })).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/api/v1/app-config", appConfigHandlers.Get).Methods(http.MethodGet)

	router.HandleFunc("/api/v1/auth/callback", authHandlers.Callback).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/auth/logout", authHandlers.Logout).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/me", authHandlers.Me).Methods(http.MethodGet)

	router.HandleFunc("/api/v1/session/active-workspace", sessionHandlers.GetActiveWorkspace).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/session/active-workspace", sessionHandlers.PutActiveWorkspace).Methods(http.MethodPut)

	router.HandleFunc("/api/v1/workspaces", workspaceHandlers.List).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/workspaces", workspaceHandlers.Create).Methods(http.MethodPost)

	scoped := router.PathPrefix("/api/v1/workspaces/{workspace_id}").Subrouter()
	scoped.Use(routing.WorkspaceContext())

	scoped.HandleFunc("", workspaceHandlers.Get).Methods(http.MethodGet)
	scoped.HandleFunc("", workspaceHandlers.Update).Methods(http.MethodPatch)
	scoped.HandleFunc("", workspaceHandlers.Delete).Methods(http.MethodDelete)
	scoped.HandleFunc("/transfer-ownership", workspaceHandlers.TransferOwnership).Methods(http.MethodPost)
	scoped.HandleFunc("/members", workspaceHandlers.ListMembers).Methods(http.MethodGet)
	scoped.HandleFunc("/members", workspaceHandlers.InviteMember).Methods(http.MethodPost)
	scoped.HandleFunc("/members/{member_id}", workspaceHandlers.RemoveMember).Methods(http.MethodDelete)

	scoped.HandleFunc("/provisioning-jobs", provisioningHandlers.List).Methods(http.MethodGet)
	scoped.HandleFunc("/provisioning-jobs", provisioningHandlers.Create).Methods(http.MethodPost)
	scoped.HandleFunc("/provisioning-jobs/{job_id}", provisioningHandlers.Get).Methods(http.MethodGet)
	scoped.HandleFunc("/provisioning-jobs/{job_id}/retry", provisioningHandlers.Retry).Methods(http.MethodPost)

	scoped.HandleFunc("/share-links", shareLinkHandlers.List).Methods(http.MethodGet)
	scoped.HandleFunc("/share-links", shareLinkHandlers.Create).Methods(http.MethodPost)
	scoped.HandleFunc("/share-links/{share_id}", shareLinkHandlers.Revoke).Methods(http.MethodDelete)

	scoped.PathPrefix("/proxy/").Handler(proxyHandler)

	router.HandleFunc("/s/{token}", shareLinkHandlers.Resolve).Methods(http.MethodGet, http.MethodPut, http.MethodPost)
}

// rateLimitKey buckets rate-limit state by authenticated user when a
// session is present, falling back to the remote address for
// unauthenticated callers (auth callback, share-link resolution).
func rateLimitKey(r *http.Request) string {
	if claims, ok := identity.SessionClaimsFromContext(r.Context()); ok {
		return claims.UserID
	}
	return r.RemoteAddr
}
