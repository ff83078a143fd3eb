package workspace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
)

// Service implements workspace CRUD, membership, and the audit trail.
// Every method that takes a requester's (userID, workspaceID) pair hides
// cross-tenant existence: a workspace belonging to a different owner
// with no membership for the caller returns WorkspaceNotFound, never
// Forbidden, so a caller cannot distinguish "doesn't exist" from "exists
// but isn't yours" (spec.md §4.5).
type Service struct {
	repo Repository
}

// NewService builds a workspace Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a workspace owned by ownerID. Names must be unique per
// owner; a duplicate name is reported as a conflict, not silently
// deduplicated.
func (s *Service) Create(ctx context.Context, appID, ownerID, name string) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, cperrors.New(cperrors.CodeMalformedToken, "workspace name is required", 400)
	}

	if existing, err := s.repo.GetWorkspaceByName(ctx, ownerID, name); err == nil && existing != nil {
		return nil, cperrors.ConflictInFlight()
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	ws := &Workspace{
		ID:        uuid.NewString(),
		AppID:     appID,
		OwnerID:   ownerID,
		Name:      name,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateWorkspace(ctx, ws); err != nil {
		return nil, err
	}

	s.audit(ctx, ws.ID, ownerID, "workspace.created", map[string]interface{}{"name": name})
	return ws, nil
}

// Get resolves a workspace for a caller, hiding existence across tenant
// boundaries. A caller may see the workspace if they are its owner or an
// active member.
func (s *Service) Get(ctx context.Context, workspaceID, callerUserID string) (*Workspace, error) {
	ws, err := s.repo.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, s.hideNotFound(err)
	}
	if ws.Status == StatusRemoved {
		return nil, cperrors.WorkspaceNotFound()
	}
	if ws.OwnerID != callerUserID {
		member, merr := s.repo.GetMemberByUserID(ctx, workspaceID, callerUserID)
		if merr != nil || member == nil || member.Status != MemberActive {
			return nil, cperrors.WorkspaceNotFound()
		}
	}
	return ws, nil
}

// ListForUser returns every workspace userID owns plus every workspace
// userID is an active member of. Before assembling the member half of that
// union, it promotes any pending invites matching callerEmail to active —
// the "on the invited user's next workspace list load" auto-accept spec.md
// §4.11 requires. The promotion is idempotent: once a membership is
// active, subsequent calls are no-ops that emit no further audit events.
func (s *Service) ListForUser(ctx context.Context, userID, callerEmail string) ([]Workspace, error) {
	owned, err := s.repo.ListWorkspacesByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(owned))
	out := make([]Workspace, 0, len(owned))
	for _, ws := range owned {
		seen[ws.ID] = struct{}{}
		out = append(out, ws)
	}

	callerEmail = strings.ToLower(strings.TrimSpace(callerEmail))
	if callerEmail == "" {
		return out, nil
	}

	memberships, err := s.repo.ListMembershipsByEmail(ctx, callerEmail)
	if err != nil {
		return nil, err
	}
	for i := range memberships {
		m := &memberships[i]
		if _, ok := seen[m.WorkspaceID]; ok {
			continue
		}
		ws, err := s.repo.GetWorkspace(ctx, m.WorkspaceID)
		if err != nil || ws.Status != StatusActive {
			continue
		}

		if m.Status == MemberPending {
			m.Status = MemberActive
			m.UserID = userID
			now := time.Now()
			m.JoinedAt = &now
			if err := s.repo.UpdateMember(ctx, m); err != nil {
				continue
			}
			s.audit(ctx, m.WorkspaceID, userID, "member.invite_accepted", map[string]interface{}{"email": callerEmail})
		}
		if m.Status != MemberActive {
			continue
		}

		seen[ws.ID] = struct{}{}
		out = append(out, *ws)
	}

	return out, nil
}

// ListMembers returns workspaceID's current pending-or-active members.
// Removed rows are retained by the store for audit but are never surfaced
// here (spec.md §3: "removed records are retained for audit").
func (s *Service) ListMembers(ctx context.Context, workspaceID string) ([]Member, error) {
	all, err := s.repo.ListMembers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(all))
	for _, m := range all {
		if m.Status != MemberRemoved {
			out = append(out, m)
		}
	}
	return out, nil
}

// Rename renames a workspace (supplemented feature, spec.md §4.11). Only
// the owner may rename.
func (s *Service) Rename(ctx context.Context, workspaceID, callerUserID, newName string) (*Workspace, error) {
	ws, err := s.repo.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, s.hideNotFound(err)
	}
	if ws.OwnerID != callerUserID {
		return nil, cperrors.WorkspaceNotFound()
	}

	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, cperrors.New(cperrors.CodeMalformedToken, "workspace name is required", 400)
	}
	if existing, err := s.repo.GetWorkspaceByName(ctx, ws.OwnerID, newName); err == nil && existing != nil && existing.ID != ws.ID {
		return nil, cperrors.ConflictInFlight()
	}

	ws.Name = newName
	ws.UpdatedAt = time.Now()
	if err := s.repo.UpdateWorkspace(ctx, ws); err != nil {
		return nil, err
	}
	s.audit(ctx, ws.ID, callerUserID, "workspace.renamed", map[string]interface{}{"name": newName})
	return ws, nil
}

// TransferOwnership reassigns a workspace's owner to an existing active
// member (supplemented feature, spec.md §4.11). Only Workspace.OwnerID
// changes: no Member row is created for the outgoing owner, so they keep
// access afterwards only if they already hold an active membership.
func (s *Service) TransferOwnership(ctx context.Context, workspaceID, callerUserID, newOwnerUserID string) (*Workspace, error) {
	ws, err := s.repo.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, s.hideNotFound(err)
	}
	if ws.OwnerID != callerUserID {
		return nil, cperrors.WorkspaceNotFound()
	}
	if newOwnerUserID == ws.OwnerID {
		return ws, nil
	}

	newOwner, err := s.repo.GetMemberByUserID(ctx, workspaceID, newOwnerUserID)
	if err != nil || newOwner == nil || newOwner.Status != MemberActive {
		return nil, cperrors.Forbidden("new owner must be an active member")
	}

	previousOwnerID := ws.OwnerID
	ws.OwnerID = newOwnerUserID
	ws.UpdatedAt = time.Now()
	if err := s.repo.UpdateWorkspace(ctx, ws); err != nil {
		return nil, err
	}

	// newOwner's Member row keeps role=admin, as does any existing row of the
	// previous owner: ownership itself lives only on Workspace.OwnerID, never on the Member
	// row's role (spec.md §3's closed role∈{admin} enum).

	s.audit(ctx, ws.ID, callerUserID, "workspace.ownership_transferred", map[string]interface{}{
		"previous_owner": previousOwnerID, "new_owner": newOwnerUserID,
	})
	return ws, nil
}

// Remove soft-removes a workspace. Only the owner may remove it.
func (s *Service) Remove(ctx context.Context, workspaceID, callerUserID string) error {
	ws, err := s.repo.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return s.hideNotFound(err)
	}
	if ws.OwnerID != callerUserID {
		return cperrors.WorkspaceNotFound()
	}
	if err := s.repo.SoftRemoveWorkspace(ctx, workspaceID); err != nil {
		return err
	}
	s.audit(ctx, workspaceID, callerUserID, "workspace.removed", nil)
	return nil
}

// Invite adds a pending member by email. If a member with that email later
// logs in for the first time, InviteAutoAccept promotes the pending row to
// active rather than creating a second membership row. role must be
// RoleAdmin: a Member's role is a closed one-value enum (spec.md §3), since
// workspace ownership is tracked separately via Workspace.OwnerID.
func (s *Service) Invite(ctx context.Context, workspaceID, callerUserID, email string, role MemberRole) (*Member, error) {
	if role != RoleAdmin {
		return nil, cperrors.New(cperrors.CodeMalformedToken, "member role must be admin", 400)
	}

	ws, err := s.Get(ctx, workspaceID, callerUserID)
	if err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if existing, err := s.repo.GetMemberByEmail(ctx, ws.ID, email); err == nil && existing != nil {
		return nil, cperrors.ConflictInFlight()
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	m := &Member{
		ID:          uuid.NewString(),
		WorkspaceID: ws.ID,
		Email:       email,
		Role:        role,
		Status:      MemberPending,
		InvitedAt:   time.Now(),
	}
	if err := s.repo.AddMember(ctx, m); err != nil {
		return nil, err
	}
	s.audit(ctx, ws.ID, callerUserID, "member.invited", map[string]interface{}{"email": email, "role": string(role)})
	return m, nil
}

// InviteAutoAccept promotes a pending invite to active the first time the
// invited email's user authenticates, keyed on email match. It is
// idempotent: calling it again for an already-active member is a no-op.
func (s *Service) InviteAutoAccept(ctx context.Context, workspaceID, userID, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	member, err := s.repo.GetMemberByEmail(ctx, workspaceID, email)
	if err != nil || member == nil {
		return nil
	}
	if member.Status == MemberActive {
		return nil
	}

	member.Status = MemberActive
	member.UserID = userID
	now := time.Now()
	member.JoinedAt = &now
	return s.repo.UpdateMember(ctx, member)
}

// RemoveMember removes a member. Only the owner or an admin may remove
// members, and the owner itself cannot be removed through this path (use
// TransferOwnership first).
func (s *Service) RemoveMember(ctx context.Context, workspaceID, callerUserID, memberID string) error {
	ws, err := s.Get(ctx, workspaceID, callerUserID)
	if err != nil {
		return err
	}
	if ws.OwnerID == memberID {
		return cperrors.Forbidden("cannot remove the workspace owner")
	}
	if err := s.repo.RemoveMember(ctx, ws.ID, memberID); err != nil {
		return err
	}
	s.audit(ctx, ws.ID, callerUserID, "member.removed", map[string]interface{}{"member_id": memberID})
	return nil
}

func (s *Service) hideNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return cperrors.WorkspaceNotFound()
	}
	return err
}

func (s *Service) audit(ctx context.Context, workspaceID, actorID, action string, detail map[string]interface{}) {
	ev := &AuditEvent{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		ActorID:     actorID,
		Action:      action,
		RequestID:   logging.RequestID(ctx),
		Detail:      detail,
		CreatedAt:   time.Now(),
	}
	_ = s.repo.AppendAuditEvent(ctx, ev)
}
