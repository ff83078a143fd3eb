// Package routing implements the control plane's request dispatch: an
// immutable route table (spec.md §4.4) and the workspace/app context
// assembly middleware built on top of it.
package routing

// Plane distinguishes which part of the system a route belongs to, so
// dispatch-level middleware (workspace-context assembly, rate limiting)
// can be applied selectively by plane rather than by individual path.
type Plane string

const (
	// PlaneControl serves the control plane's own API: workspace CRUD,
	// provisioning, sharing, auth.
	PlaneControl Plane = "control"
	// PlaneProxy forwards to a workspace runtime (HTTP/WS/SSE).
	PlaneProxy Plane = "proxy"
	// PlanePublic serves unauthenticated endpoints (health, auth callback,
	// share-link resolution).
	PlanePublic Plane = "public"
)

// RouteEntry describes one registered route. RequiresWorkspace marks
// routes whose workspace-context assembly (path/header/session agreement,
// spec.md §4.4) runs before the handler.
type RouteEntry struct {
	Pattern          string
	Methods          []string
	Plane            Plane
	RequiresWorkspace bool
}

// Table is the control plane's compiled, immutable route list. It is built
// once at startup and only ever read afterward.
type Table struct {
	entries []RouteEntry
}

// NewTable builds a Table from a fixed slice of entries.
func NewTable(entries []RouteEntry) *Table {
	frozen := make([]RouteEntry, len(entries))
	copy(frozen, entries)
	return &Table{entries: frozen}
}

// Entries returns the table's entries. The returned slice must not be
// mutated by callers.
func (t *Table) Entries() []RouteEntry {
	return t.entries
}

// DefaultTable is the control plane's route table, spec.md §6's endpoint
// list translated into dispatch metadata.
func DefaultTable() *Table {
	return NewTable([]RouteEntry{
		{Pattern: "/health", Methods: []string{"GET"}, Plane: PlanePublic},
		{Pattern: "/ready", Methods: []string{"GET"}, Plane: PlanePublic},

		{Pattern: "/api/v1/app-config", Methods: []string{"GET"}, Plane: PlanePublic},

		{Pattern: "/api/v1/auth/callback", Methods: []string{"POST"}, Plane: PlanePublic},
		{Pattern: "/api/v1/auth/logout", Methods: []string{"POST"}, Plane: PlaneControl},
		{Pattern: "/api/v1/me", Methods: []string{"GET"}, Plane: PlaneControl},
		{Pattern: "/api/v1/session/active-workspace", Methods: []string{"GET", "PUT"}, Plane: PlaneControl},

		{Pattern: "/api/v1/workspaces", Methods: []string{"GET", "POST"}, Plane: PlaneControl},
		{Pattern: "/api/v1/workspaces/{workspace_id}", Methods: []string{"GET", "PATCH", "DELETE"}, Plane: PlaneControl, RequiresWorkspace: true},
		{Pattern: "/api/v1/workspaces/{workspace_id}/transfer-ownership", Methods: []string{"POST"}, Plane: PlaneControl, RequiresWorkspace: true},
		{Pattern: "/api/v1/workspaces/{workspace_id}/members", Methods: []string{"GET", "POST"}, Plane: PlaneControl, RequiresWorkspace: true},
		{Pattern: "/api/v1/workspaces/{workspace_id}/members/{member_id}", Methods: []string{"DELETE"}, Plane: PlaneControl, RequiresWorkspace: true},

		{Pattern: "/api/v1/workspaces/{workspace_id}/provisioning-jobs", Methods: []string{"GET", "POST"}, Plane: PlaneControl, RequiresWorkspace: true},
		{Pattern: "/api/v1/workspaces/{workspace_id}/provisioning-jobs/{job_id}", Methods: []string{"GET"}, Plane: PlaneControl, RequiresWorkspace: true},
		{Pattern: "/api/v1/workspaces/{workspace_id}/provisioning-jobs/{job_id}/retry", Methods: []string{"POST"}, Plane: PlaneControl, RequiresWorkspace: true},

		{Pattern: "/api/v1/workspaces/{workspace_id}/share-links", Methods: []string{"GET", "POST"}, Plane: PlaneControl, RequiresWorkspace: true},
		{Pattern: "/api/v1/workspaces/{workspace_id}/share-links/{share_id}", Methods: []string{"DELETE"}, Plane: PlaneControl, RequiresWorkspace: true},
		{Pattern: "/s/{token}", Methods: []string{"GET"}, Plane: PlanePublic},

		{Pattern: "/api/v1/workspaces/{workspace_id}/proxy/{path:.*}", Methods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"}, Plane: PlaneProxy, RequiresWorkspace: true},
	})
}
