package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/boringdata/boring-ui-controlplane/domain/workspace"
)

func newMockWorkspaceStore(t *testing.T) (*WorkspaceStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewWorkspaceStore(sqlxDB), mock, func() { db.Close() }
}

func TestWorkspaceStoreCreateWorkspaceExecutesInsert(t *testing.T) {
	store, mock, closeFn := newMockWorkspaceStore(t)
	defer closeFn()

	ws := &workspace.Workspace{
		ID: "ws-1", AppID: "app-1", OwnerID: "owner-1", Name: "prod",
		Status: workspace.StatusActive, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	mock.ExpectExec("INSERT INTO workspaces").
		WithArgs(ws.ID, ws.AppID, ws.OwnerID, ws.Name, ws.Status, ws.CreatedAt, ws.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.CreateWorkspace(context.Background(), ws))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkspaceStoreGetWorkspaceMapsNoRowsToErrNotFound(t *testing.T) {
	store, mock, closeFn := newMockWorkspaceStore(t)
	defer closeFn()

	mock.ExpectQuery("SELECT (.+) FROM workspaces WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "app_id", "owner_id", "name", "status", "created_at", "updated_at"}))

	_, err := store.GetWorkspace(context.Background(), "missing")
	require.ErrorIs(t, err, workspace.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkspaceStoreRemoveMemberIsSoftDelete(t *testing.T) {
	store, mock, closeFn := newMockWorkspaceStore(t)
	defer closeFn()

	mock.ExpectExec("UPDATE workspace_members SET status = 'removed'").
		WithArgs("ws-1", "member-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.RemoveMember(context.Background(), "ws-1", "member-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkspaceStoreRemoveMemberReturnsErrNotFoundWhenNoRowsAffected(t *testing.T) {
	store, mock, closeFn := newMockWorkspaceStore(t)
	defer closeFn()

	mock.ExpectExec("UPDATE workspace_members SET status = 'removed'").
		WithArgs("ws-1", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.RemoveMember(context.Background(), "ws-1", "ghost")
	require.ErrorIs(t, err, workspace.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkspaceStoreListMembershipsByEmailExcludesRemoved(t *testing.T) {
	store, mock, closeFn := newMockWorkspaceStore(t)
	defer closeFn()

	rows := sqlmock.NewRows([]string{"id", "workspace_id", "email", "user_id", "role", "status", "invited_at", "joined_at"}).
		AddRow("m-1", "ws-1", "friend@example.com", "", workspace.RoleAdmin, workspace.MemberPending, time.Now(), nil)
	mock.ExpectQuery("SELECT (.+) FROM workspace_members WHERE email = \\$1 AND status != 'removed'").
		WithArgs("friend@example.com").
		WillReturnRows(rows)

	members, err := store.ListMembershipsByEmail(context.Background(), "friend@example.com")
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, workspace.MemberPending, members[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
