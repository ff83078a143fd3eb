package workspace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boringdata/boring-ui-controlplane/domain/workspace"
	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/storage/memory"
)

func TestWorkspaceCrossTenantAccessHidesExistence(t *testing.T) {
	ctx := context.Background()
	svc := workspace.NewService(memory.NewWorkspaceStore())

	ws, err := svc.Create(ctx, "app-1", "owner-1", "prod")
	require.NoError(t, err)

	_, err = svc.Get(ctx, ws.ID, "stranger")
	svcErr, ok := cperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, cperrors.CodeWorkspaceNotFound, svcErr.Code, "a non-member must see not_found, never forbidden")
}

func TestWorkspaceCreateRejectsDuplicateNamePerOwner(t *testing.T) {
	ctx := context.Background()
	svc := workspace.NewService(memory.NewWorkspaceStore())

	_, err := svc.Create(ctx, "app-1", "owner-1", "prod")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "app-1", "owner-1", "prod")
	require.Error(t, err)
}

func TestInviteThenAutoAcceptPromotesSameMembershipRow(t *testing.T) {
	ctx := context.Background()
	svc := workspace.NewService(memory.NewWorkspaceStore())
	ws, err := svc.Create(ctx, "app-1", "owner-1", "prod")
	require.NoError(t, err)

	invited, err := svc.Invite(ctx, ws.ID, "owner-1", "friend@example.com", workspace.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, workspace.MemberPending, invited.Status)

	require.NoError(t, svc.InviteAutoAccept(ctx, ws.ID, "user-42", "friend@example.com"))

	members, err := svc.ListMembers(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, members, 1, "auto-accept must promote the existing row, not add a second one")
	assert.Equal(t, workspace.MemberActive, members[0].Status)
	assert.Equal(t, "user-42", members[0].UserID)
}

func TestTransferOwnershipRequiresActiveMember(t *testing.T) {
	ctx := context.Background()
	svc := workspace.NewService(memory.NewWorkspaceStore())
	ws, err := svc.Create(ctx, "app-1", "owner-1", "prod")
	require.NoError(t, err)

	_, err = svc.TransferOwnership(ctx, ws.ID, "owner-1", "not-a-member")
	require.Error(t, err)

	_, err = svc.Invite(ctx, ws.ID, "owner-1", "new-owner@example.com", workspace.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, svc.InviteAutoAccept(ctx, ws.ID, "new-owner", "new-owner@example.com"))

	updated, err := svc.TransferOwnership(ctx, ws.ID, "owner-1", "new-owner")
	require.NoError(t, err)
	assert.Equal(t, "new-owner", updated.OwnerID)
}

func TestListForUserAutoAcceptsPendingInviteOnFirstLoad(t *testing.T) {
	ctx := context.Background()
	svc := workspace.NewService(memory.NewWorkspaceStore())
	ws, err := svc.Create(ctx, "app-1", "owner-1", "prod")
	require.NoError(t, err)

	_, err = svc.Invite(ctx, ws.ID, "owner-1", "friend@example.com", workspace.RoleAdmin)
	require.NoError(t, err)

	workspaces, err := svc.ListForUser(ctx, "user-42", "Friend@Example.com")
	require.NoError(t, err)
	require.Len(t, workspaces, 1, "pending invite must surface the workspace on first list load")
	assert.Equal(t, ws.ID, workspaces[0].ID)

	members, err := svc.ListMembers(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, workspace.MemberActive, members[0].Status)
	assert.Equal(t, "user-42", members[0].UserID)

	again, err := svc.ListForUser(ctx, "user-42", "friend@example.com")
	require.NoError(t, err)
	require.Len(t, again, 1, "second list call must be a no-op, not add a duplicate membership")
}

func TestInviteRejectsDuplicatePendingInvite(t *testing.T) {
	ctx := context.Background()
	svc := workspace.NewService(memory.NewWorkspaceStore())
	ws, err := svc.Create(ctx, "app-1", "owner-1", "prod")
	require.NoError(t, err)

	_, err = svc.Invite(ctx, ws.ID, "owner-1", "friend@example.com", workspace.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Invite(ctx, ws.ID, "owner-1", "friend@example.com", workspace.RoleAdmin)
	require.Error(t, err)
	svcErr, ok := cperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, cperrors.CodeConflictInFlight, svcErr.Code)
}

func TestRemoveMemberCannotRemoveOwner(t *testing.T) {
	ctx := context.Background()
	svc := workspace.NewService(memory.NewWorkspaceStore())
	ws, err := svc.Create(ctx, "app-1", "owner-1", "prod")
	require.NoError(t, err)

	err = svc.RemoveMember(ctx, ws.ID, "owner-1", "owner-1")
	require.Error(t, err)
}
