// Package postgres implements every domain repository contract against
// Postgres via jmoiron/sqlx and lib/pq, the durable counterpart to
// storage/memory.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/boringdata/boring-ui-controlplane/domain/workspace"
)

// WorkspaceStore is a sqlx-backed workspace.Repository.
type WorkspaceStore struct {
	db *sqlx.DB
}

// NewWorkspaceStore builds a WorkspaceStore over an open *sqlx.DB.
func NewWorkspaceStore(db *sqlx.DB) *WorkspaceStore {
	return &WorkspaceStore{db: db}
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return workspace.ErrNotFound
	}
	return err
}

func (s *WorkspaceStore) CreateWorkspace(ctx context.Context, ws *workspace.Workspace) error {
	const q = `
		INSERT INTO workspaces (id, app_id, owner_id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, q, ws.ID, ws.AppID, ws.OwnerID, ws.Name, ws.Status, ws.CreatedAt, ws.UpdatedAt)
	return err
}

func (s *WorkspaceStore) GetWorkspace(ctx context.Context, id string) (*workspace.Workspace, error) {
	var ws workspace.Workspace
	const q = `SELECT id, app_id, owner_id, name, status, created_at, updated_at FROM workspaces WHERE id = $1`
	if err := s.db.GetContext(ctx, &ws, q, id); err != nil {
		return nil, mapNotFound(err)
	}
	return &ws, nil
}

func (s *WorkspaceStore) GetWorkspaceByName(ctx context.Context, ownerID, name string) (*workspace.Workspace, error) {
	var ws workspace.Workspace
	const q = `
		SELECT id, app_id, owner_id, name, status, created_at, updated_at
		FROM workspaces WHERE owner_id = $1 AND name = $2 AND status = 'active'`
	if err := s.db.GetContext(ctx, &ws, q, ownerID, name); err != nil {
		return nil, mapNotFound(err)
	}
	return &ws, nil
}

func (s *WorkspaceStore) UpdateWorkspace(ctx context.Context, ws *workspace.Workspace) error {
	const q = `
		UPDATE workspaces SET app_id = $2, owner_id = $3, name = $4, status = $5, updated_at = $6
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, ws.ID, ws.AppID, ws.OwnerID, ws.Name, ws.Status, ws.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

func (s *WorkspaceStore) ListWorkspacesByOwner(ctx context.Context, ownerID string) ([]workspace.Workspace, error) {
	var out []workspace.Workspace
	const q = `
		SELECT id, app_id, owner_id, name, status, created_at, updated_at
		FROM workspaces WHERE owner_id = $1 AND status = 'active' ORDER BY created_at ASC`
	if err := s.db.SelectContext(ctx, &out, q, ownerID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *WorkspaceStore) SoftRemoveWorkspace(ctx context.Context, id string) error {
	const q = `UPDATE workspaces SET status = 'removed', updated_at = now() WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

func (s *WorkspaceStore) AddMember(ctx context.Context, m *workspace.Member) error {
	const q = `
		INSERT INTO workspace_members (id, workspace_id, email, user_id, role, status, invited_at, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.ExecContext(ctx, q, m.ID, m.WorkspaceID, m.Email, m.UserID, m.Role, m.Status, m.InvitedAt, m.JoinedAt)
	return err
}

func (s *WorkspaceStore) GetMemberByEmail(ctx context.Context, workspaceID, email string) (*workspace.Member, error) {
	var m workspace.Member
	const q = `
		SELECT id, workspace_id, email, user_id, role, status, invited_at, joined_at
		FROM workspace_members WHERE workspace_id = $1 AND email = $2 AND status != 'removed'`
	if err := s.db.GetContext(ctx, &m, q, workspaceID, email); err != nil {
		return nil, mapNotFound(err)
	}
	return &m, nil
}

func (s *WorkspaceStore) ListMembershipsByEmail(ctx context.Context, email string) ([]workspace.Member, error) {
	var out []workspace.Member
	const q = `
		SELECT id, workspace_id, email, user_id, role, status, invited_at, joined_at
		FROM workspace_members WHERE email = $1 AND status != 'removed' ORDER BY invited_at ASC`
	if err := s.db.SelectContext(ctx, &out, q, email); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *WorkspaceStore) GetMember(ctx context.Context, workspaceID, memberID string) (*workspace.Member, error) {
	var m workspace.Member
	const q = `
		SELECT id, workspace_id, email, user_id, role, status, invited_at, joined_at
		FROM workspace_members WHERE workspace_id = $1 AND id = $2`
	if err := s.db.GetContext(ctx, &m, q, workspaceID, memberID); err != nil {
		return nil, mapNotFound(err)
	}
	return &m, nil
}

func (s *WorkspaceStore) GetMemberByUserID(ctx context.Context, workspaceID, userID string) (*workspace.Member, error) {
	var m workspace.Member
	const q = `
		SELECT id, workspace_id, email, user_id, role, status, invited_at, joined_at
		FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`
	if err := s.db.GetContext(ctx, &m, q, workspaceID, userID); err != nil {
		return nil, mapNotFound(err)
	}
	return &m, nil
}

func (s *WorkspaceStore) ListMembers(ctx context.Context, workspaceID string) ([]workspace.Member, error) {
	var out []workspace.Member
	const q = `
		SELECT id, workspace_id, email, user_id, role, status, invited_at, joined_at
		FROM workspace_members WHERE workspace_id = $1 ORDER BY invited_at ASC`
	if err := s.db.SelectContext(ctx, &out, q, workspaceID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *WorkspaceStore) UpdateMember(ctx context.Context, m *workspace.Member) error {
	const q = `
		UPDATE workspace_members SET email = $3, user_id = $4, role = $5, status = $6, joined_at = $7
		WHERE workspace_id = $1 AND id = $2`
	res, err := s.db.ExecContext(ctx, q, m.WorkspaceID, m.ID, m.Email, m.UserID, m.Role, m.Status, m.JoinedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

// RemoveMember soft-removes a membership row: the record is retained with
// status='removed' for audit (spec.md §3), never deleted.
func (s *WorkspaceStore) RemoveMember(ctx context.Context, workspaceID, memberID string) error {
	const q = `UPDATE workspace_members SET status = 'removed' WHERE workspace_id = $1 AND id = $2`
	res, err := s.db.ExecContext(ctx, q, workspaceID, memberID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

func (s *WorkspaceStore) AppendAuditEvent(ctx context.Context, ev *workspace.AuditEvent) error {
	detail := ev.Detail
	if detail == nil {
		detail = map[string]interface{}{}
	}
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO audit_events (id, workspace_id, actor_id, action, request_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = s.db.ExecContext(ctx, q, ev.ID, ev.WorkspaceID, ev.ActorID, ev.Action, ev.RequestID, detailJSON, ev.CreatedAt)
	return err
}

func (s *WorkspaceStore) ListAuditEvents(ctx context.Context, workspaceID string, limit int) ([]workspace.AuditEvent, error) {
	type row struct {
		ID          string          `db:"id"`
		WorkspaceID string          `db:"workspace_id"`
		ActorID     string          `db:"actor_id"`
		Action      string          `db:"action"`
		RequestID   string          `db:"request_id"`
		Detail      json.RawMessage `db:"detail"`
		CreatedAt   sql.NullTime    `db:"created_at"`
	}
	var rows []row
	const q = `
		SELECT id, workspace_id, actor_id, action, request_id, detail, created_at
		FROM audit_events WHERE workspace_id = $1 ORDER BY created_at DESC LIMIT $2`
	if err := s.db.SelectContext(ctx, &rows, q, workspaceID, limit); err != nil {
		return nil, err
	}

	out := make([]workspace.AuditEvent, len(rows))
	for i, r := range rows {
		var detail map[string]interface{}
		if len(r.Detail) > 0 {
			if err := json.Unmarshal(r.Detail, &detail); err != nil {
				return nil, err
			}
		}
		out[i] = workspace.AuditEvent{
			ID:          r.ID,
			WorkspaceID: r.WorkspaceID,
			ActorID:     r.ActorID,
			Action:      r.Action,
			RequestID:   r.RequestID,
			Detail:      detail,
			CreatedAt:   r.CreatedAt.Time,
		}
	}
	return out, nil
}
