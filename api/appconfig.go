package api

import (
	"net/http"

	"github.com/boringdata/boring-ui-controlplane/domain/identity"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/httputil"
)

// AppConfigHandlers exposes the branding/release lookup for the resolved
// host (spec.md §4.1, §6's GET /api/v1/app-config).
type AppConfigHandlers struct {
	resolver *identity.HostResolver
}

// NewAppConfigHandlers builds AppConfigHandlers.
func NewAppConfigHandlers(resolver *identity.HostResolver) *AppConfigHandlers {
	return &AppConfigHandlers{resolver: resolver}
}

// Get handles GET /api/v1/app-config: it returns the branding fields
// registered for the requesting Host, or 404 app_config_not_found when the
// host resolves to no app or the app has no registered config.
func (h *AppConfigHandlers) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.resolver.ResolveConfig(r.Host)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"app_id":             cfg.AppID,
		"name":               cfg.Name,
		"logo":               cfg.Logo,
		"default_release_id": cfg.DefaultReleaseID,
	})
}
