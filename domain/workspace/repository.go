package workspace

import "context"

// Repository defines workspace/membership/audit persistence. Two
// implementations exist: storage/memory (tests, local bootstrap) and
// storage/postgres (durable, sqlx-backed).
type Repository interface {
	CreateWorkspace(ctx context.Context, ws *Workspace) error
	GetWorkspace(ctx context.Context, id string) (*Workspace, error)
	// GetWorkspaceByName looks up a workspace by (owner, name) for the
	// per-owner name-uniqueness invariant.
	GetWorkspaceByName(ctx context.Context, ownerID, name string) (*Workspace, error)
	UpdateWorkspace(ctx context.Context, ws *Workspace) error
	ListWorkspacesByOwner(ctx context.Context, ownerID string) ([]Workspace, error)
	// SoftRemoveWorkspace marks a workspace removed without deleting its
	// row, preserving audit and share-link history.
	SoftRemoveWorkspace(ctx context.Context, id string) error

	AddMember(ctx context.Context, m *Member) error
	GetMemberByEmail(ctx context.Context, workspaceID, email string) (*Member, error)
	GetMember(ctx context.Context, workspaceID, memberID string) (*Member, error)
	// GetMemberByUserID looks up a member by the authenticated user id it
	// was accepted under, distinct from the member row's own id.
	GetMemberByUserID(ctx context.Context, workspaceID, userID string) (*Member, error)
	// ListMembershipsByEmail returns every pending-or-active membership row
	// for email across every workspace, used to auto-promote invites on the
	// invited user's first workspace list load (spec.md §4.11).
	ListMembershipsByEmail(ctx context.Context, email string) ([]Member, error)
	ListMembers(ctx context.Context, workspaceID string) ([]Member, error)
	UpdateMember(ctx context.Context, m *Member) error
	RemoveMember(ctx context.Context, workspaceID, memberID string) error

	AppendAuditEvent(ctx context.Context, ev *AuditEvent) error
	ListAuditEvents(ctx context.Context, workspaceID string, limit int) ([]AuditEvent, error)
}

// ErrNotFound is returned by lookups that find no matching row. Services
// map it to cperrors.WorkspaceNotFound (or an equivalent 404) rather than
// leaking persistence-layer errors across the domain boundary.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "workspace: not found" }
