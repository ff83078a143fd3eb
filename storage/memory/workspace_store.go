// Package memory implements every domain repository contract against a
// mutex-guarded in-memory map, the same backend shape as the teacher's
// infrastructure/state.MemoryBackend. It backs tests and local bootstrap
// runs where DATABASE_USE_MEMORY_STORE is set.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/boringdata/boring-ui-controlplane/domain/workspace"
)

// WorkspaceStore is an in-memory workspace.Repository.
type WorkspaceStore struct {
	mu         sync.RWMutex
	workspaces map[string]*workspace.Workspace
	members    map[string]map[string]*workspace.Member // workspaceID -> memberID -> Member
	audit      map[string][]workspace.AuditEvent        // workspaceID -> events
}

// NewWorkspaceStore builds an empty WorkspaceStore.
func NewWorkspaceStore() *WorkspaceStore {
	return &WorkspaceStore{
		workspaces: make(map[string]*workspace.Workspace),
		members:    make(map[string]map[string]*workspace.Member),
		audit:      make(map[string][]workspace.AuditEvent),
	}
}

func (s *WorkspaceStore) CreateWorkspace(ctx context.Context, ws *workspace.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ws
	s.workspaces[ws.ID] = &cp
	return nil
}

func (s *WorkspaceStore) GetWorkspace(ctx context.Context, id string) (*workspace.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[id]
	if !ok {
		return nil, workspace.ErrNotFound
	}
	cp := *ws
	return &cp, nil
}

func (s *WorkspaceStore) GetWorkspaceByName(ctx context.Context, ownerID, name string) (*workspace.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ws := range s.workspaces {
		if ws.OwnerID == ownerID && ws.Name == name && ws.Status == workspace.StatusActive {
			cp := *ws
			return &cp, nil
		}
	}
	return nil, workspace.ErrNotFound
}

func (s *WorkspaceStore) UpdateWorkspace(ctx context.Context, ws *workspace.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workspaces[ws.ID]; !ok {
		return workspace.ErrNotFound
	}
	cp := *ws
	s.workspaces[ws.ID] = &cp
	return nil
}

func (s *WorkspaceStore) ListWorkspacesByOwner(ctx context.Context, ownerID string) ([]workspace.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []workspace.Workspace
	for _, ws := range s.workspaces {
		if ws.OwnerID == ownerID && ws.Status == workspace.StatusActive {
			out = append(out, *ws)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *WorkspaceStore) SoftRemoveWorkspace(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[id]
	if !ok {
		return workspace.ErrNotFound
	}
	ws.Status = workspace.StatusRemoved
	return nil
}

func (s *WorkspaceStore) AddMember(ctx context.Context, m *workspace.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.WorkspaceID]; !ok {
		s.members[m.WorkspaceID] = make(map[string]*workspace.Member)
	}
	cp := *m
	s.members[m.WorkspaceID][m.ID] = &cp
	return nil
}

// GetMemberByEmail returns the workspace's current pending-or-active
// membership for email, ignoring removed rows: at most one record per
// (workspace_id, email) is ever pending or active at a time (spec.md §3),
// so a removed row never shadows a later re-invite.
func (s *WorkspaceStore) GetMemberByEmail(ctx context.Context, workspaceID, email string) (*workspace.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members[workspaceID] {
		if m.Email == email && m.Status != workspace.MemberRemoved {
			cp := *m
			return &cp, nil
		}
	}
	return nil, workspace.ErrNotFound
}

func (s *WorkspaceStore) GetMember(ctx context.Context, workspaceID, memberID string) (*workspace.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[workspaceID][memberID]
	if !ok {
		return nil, workspace.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *WorkspaceStore) ListMembershipsByEmail(ctx context.Context, email string) ([]workspace.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []workspace.Member
	for _, byID := range s.members {
		for _, m := range byID {
			if m.Email == email && (m.Status == workspace.MemberPending || m.Status == workspace.MemberActive) {
				out = append(out, *m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvitedAt.Before(out[j].InvitedAt) })
	return out, nil
}

func (s *WorkspaceStore) GetMemberByUserID(ctx context.Context, workspaceID, userID string) (*workspace.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members[workspaceID] {
		if m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, workspace.ErrNotFound
}

func (s *WorkspaceStore) ListMembers(ctx context.Context, workspaceID string) ([]workspace.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []workspace.Member
	for _, m := range s.members[workspaceID] {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvitedAt.Before(out[j].InvitedAt) })
	return out, nil
}

func (s *WorkspaceStore) UpdateMember(ctx context.Context, m *workspace.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.WorkspaceID]; !ok {
		return workspace.ErrNotFound
	}
	if _, ok := s.members[m.WorkspaceID][m.ID]; !ok {
		return workspace.ErrNotFound
	}
	cp := *m
	s.members[m.WorkspaceID][m.ID] = &cp
	return nil
}

// RemoveMember soft-removes a membership row: the record is retained
// with status=removed for audit (spec.md §3), never deleted.
func (s *WorkspaceStore) RemoveMember(ctx context.Context, workspaceID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[workspaceID][memberID]
	if !ok {
		return workspace.ErrNotFound
	}
	m.Status = workspace.MemberRemoved
	return nil
}

func (s *WorkspaceStore) AppendAuditEvent(ctx context.Context, ev *workspace.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit[ev.WorkspaceID] = append(s.audit[ev.WorkspaceID], *ev)
	return nil
}

func (s *WorkspaceStore) ListAuditEvents(ctx context.Context, workspaceID string, limit int) ([]workspace.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.audit[workspaceID]
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]workspace.AuditEvent, len(events))
	copy(out, events)
	return out, nil
}
