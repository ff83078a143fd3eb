// Package identity implements the control plane's authentication boundary
// (spec.md §4.1-§4.3): host-to-application resolution, JWT/session
// verification, and the auth guard middleware.
package identity

import (
	"net/http"
	"strings"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
)

// AppConfig is the branding/release identity registered for one
// application (spec.md §3). Immutable once registered.
type AppConfig struct {
	AppID            string `json:"app_id"`
	Name             string `json:"name"`
	Logo             string `json:"logo"`
	DefaultReleaseID string `json:"default_release_id"`
}

// HostResolver maps an inbound request host to an application identity
// (spec.md §4.1). It is built once at startup from AppIdentityConfig and
// never mutated afterward.
type HostResolver struct {
	hostMap      map[string]string
	defaultAppID string
	wildcardAppID string
	configs      map[string]AppConfig
}

// NewHostResolver builds a HostResolver from a host->app_id map and an
// optional default app_id used when no entry matches. A "*" entry in
// hostMap is treated as the wildcard fallback (spec.md §4.1 resolution
// order: exact match, then "*", then default).
func NewHostResolver(hostMap map[string]string, defaultAppID string) *HostResolver {
	normalized := make(map[string]string, len(hostMap))
	var wildcard string
	for host, appID := range hostMap {
		host = strings.ToLower(strings.TrimSpace(host))
		if host == "*" {
			wildcard = appID
			continue
		}
		normalized[host] = appID
	}
	return &HostResolver{hostMap: normalized, defaultAppID: defaultAppID, wildcardAppID: wildcard, configs: map[string]AppConfig{}}
}

// WithAppConfigs returns a new HostResolver carrying the given AppConfigs
// in addition to any the receiver already holds, leaving the receiver
// itself untouched so a resolver already in use by in-flight requests
// never observes a config registered after construction.
func (r *HostResolver) WithAppConfigs(configs []AppConfig) *HostResolver {
	merged := make(map[string]AppConfig, len(r.configs)+len(configs))
	for appID, cfg := range r.configs {
		merged[appID] = cfg
	}
	for _, c := range configs {
		merged[c.AppID] = c
	}
	return &HostResolver{
		hostMap:       r.hostMap,
		defaultAppID:  r.defaultAppID,
		wildcardAppID: r.wildcardAppID,
		configs:       merged,
	}
}

// Resolve returns the app_id registered for host: exact match first (case
// insensitive, port and IPv6 brackets stripped), then the "*" wildcard
// entry, then the configured default. It returns app_not_resolvable when
// none resolve.
func (r *HostResolver) Resolve(host string) (string, error) {
	host = normalizeHost(host)

	if appID, ok := r.hostMap[host]; ok {
		return appID, nil
	}
	if r.wildcardAppID != "" {
		return r.wildcardAppID, nil
	}
	if r.defaultAppID != "" {
		return r.defaultAppID, nil
	}
	return "", cperrors.New(cperrors.Code("app_not_resolvable"), "host does not resolve to an application", http.StatusNotFound)
}

// ResolveConfig resolves host to an app_id and returns its registered
// AppConfig. It returns app_config_not_found both when the host itself
// cannot be resolved and when the resolved app_id has no registered
// config (spec.md §4.1: "callers surface 404 app_config_not_found when
// the config is absent").
func (r *HostResolver) ResolveConfig(host string) (AppConfig, error) {
	appID, err := r.Resolve(host)
	if err != nil {
		return AppConfig{}, cperrors.AppConfigNotFound()
	}
	cfg, ok := r.configs[appID]
	if !ok {
		return AppConfig{}, cperrors.AppConfigNotFound()
	}
	return cfg, nil
}

// normalizeHost lowercases, trims, and strips a port suffix and IPv6
// brackets from a Host header value (spec.md §4.1).
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if strings.HasPrefix(host, "[") {
		if idx := strings.IndexByte(host, ']'); idx >= 0 {
			return host[1:idx]
		}
	}
	if idx := strings.LastIndexByte(host, ':'); idx >= 0 {
		return host[:idx]
	}
	return host
}
