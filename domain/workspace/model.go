// Package workspace implements the control plane's tenant boundary:
// workspaces, memberships, and the audit trail (spec.md §4.5).
package workspace

import "time"

// MemberStatus tracks an invite's lifecycle.
type MemberStatus string

const (
	MemberPending MemberStatus = "pending"
	MemberActive  MemberStatus = "active"
	MemberRemoved MemberStatus = "removed"
)

// MemberRole is a workspace-scoped role, distinct from any IdP-level role.
// The workspace owner is tracked via Workspace.OwnerID, never as a Member
// row, so a Member's role is a closed one-value enum (spec.md §3:
// "role∈{admin}") rather than a graded admin/member hierarchy.
type MemberRole string

const (
	RoleAdmin MemberRole = "admin"
)

// Status tracks a workspace's own lifecycle; removal is soft (spec.md
// §4.5: "workspace deletion marks the row removed rather than deleting
// it, preserving audit history and share-link resolution semantics").
type Status string

const (
	StatusActive  Status = "active"
	StatusRemoved Status = "removed"
)

// Workspace is a tenant boundary: every provisioning job, share link, and
// membership belongs to exactly one workspace.
type Workspace struct {
	ID        string    `db:"id" json:"id"`
	AppID     string    `db:"app_id" json:"app_id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Member is a user's membership in a workspace.
type Member struct {
	ID          string       `db:"id" json:"id"`
	WorkspaceID string       `db:"workspace_id" json:"workspace_id"`
	Email       string       `db:"email" json:"email"`
	UserID      string       `db:"user_id" json:"user_id,omitempty"`
	Role        MemberRole   `db:"role" json:"role"`
	Status      MemberStatus `db:"status" json:"status"`
	InvitedAt   time.Time    `db:"invited_at" json:"invited_at"`
	JoinedAt    *time.Time   `db:"joined_at" json:"joined_at,omitempty"`
}

// AuditEvent is an append-only record of a tenant-affecting action
// (spec.md §4.5, §4.9). Events are never mutated once written.
type AuditEvent struct {
	ID          string                 `db:"id" json:"id"`
	WorkspaceID string                 `db:"workspace_id" json:"workspace_id"`
	ActorID     string                 `db:"actor_id" json:"actor_id"`
	Action      string                 `db:"action" json:"action"`
	RequestID   string                 `db:"request_id" json:"request_id"`
	Detail      map[string]interface{} `db:"-" json:"detail,omitempty"`
	CreatedAt   time.Time              `db:"created_at" json:"created_at"`
}
