package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boringdata/boring-ui-controlplane/api"
	"github.com/boringdata/boring-ui-controlplane/domain/identity"
	"github.com/boringdata/boring-ui-controlplane/domain/workspace"
	"github.com/boringdata/boring-ui-controlplane/storage/memory"
)

func newTestWorkspaceHandlers() *api.WorkspaceHandlers {
	service := workspace.NewService(memory.NewWorkspaceStore())
	return api.NewWorkspaceHandlers(service, func(r *http.Request) string { return "app-1" })
}

func withCaller(r *http.Request, userID string) *http.Request {
	claims := &identity.SessionClaims{UserID: userID}
	return r.WithContext(identity.WithSessionClaims(r.Context(), claims))
}

func TestCreateWorkspaceRequiresAuthenticatedCaller(t *testing.T) {
	h := newTestWorkspaceHandlers()
	body, _ := json.Marshal(map[string]string{"name": "prod"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workspaces", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateWorkspaceThenGetByOwnerSucceeds(t *testing.T) {
	h := newTestWorkspaceHandlers()

	createBody, _ := json.Marshal(map[string]string{"name": "prod"})
	createReq := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/workspaces", bytes.NewReader(createBody)), "user-1")
	createRec := httptest.NewRecorder()
	h.Create(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)

	var created workspace.Workspace
	require.NoError(t, json.NewDecoder(createRec.Body).Decode(&created))
	assert.Equal(t, "prod", created.Name)
	assert.Equal(t, "app-1", created.AppID)

	getReq := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/workspaces/"+created.ID, nil), "user-1")
	getReq = mux.SetURLVars(getReq, map[string]string{"workspace_id": created.ID})
	getRec := httptest.NewRecorder()
	h.Get(getRec, getReq)

	require.Equal(t, http.StatusOK, getRec.Code)
}

func TestGetWorkspaceHidesExistenceFromNonMember(t *testing.T) {
	h := newTestWorkspaceHandlers()

	createBody, _ := json.Marshal(map[string]string{"name": "prod"})
	createReq := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/workspaces", bytes.NewReader(createBody)), "owner-1")
	createRec := httptest.NewRecorder()
	h.Create(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)

	var created workspace.Workspace
	require.NoError(t, json.NewDecoder(createRec.Body).Decode(&created))

	getReq := withCaller(httptest.NewRequest(http.MethodGet, "/api/v1/workspaces/"+created.ID, nil), "stranger")
	getReq = mux.SetURLVars(getReq, map[string]string{"workspace_id": created.ID})
	getRec := httptest.NewRecorder()
	h.Get(getRec, getReq)

	require.Equal(t, http.StatusNotFound, getRec.Code, "a non-member must see 404, never 403, for a workspace that isn't theirs")
}

func TestInviteMemberRejectsNonAdminRole(t *testing.T) {
	h := newTestWorkspaceHandlers()

	createBody, _ := json.Marshal(map[string]string{"name": "prod"})
	createReq := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/workspaces", bytes.NewReader(createBody)), "owner-1")
	createRec := httptest.NewRecorder()
	h.Create(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)

	var created workspace.Workspace
	require.NoError(t, json.NewDecoder(createRec.Body).Decode(&created))

	inviteBody, _ := json.Marshal(map[string]string{"email": "friend@example.com", "role": "member"})
	inviteReq := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/workspaces/"+created.ID+"/members", bytes.NewReader(inviteBody)), "owner-1")
	inviteReq = mux.SetURLVars(inviteReq, map[string]string{"workspace_id": created.ID})
	inviteRec := httptest.NewRecorder()
	h.InviteMember(inviteRec, inviteReq)

	assert.Equal(t, http.StatusBadRequest, inviteRec.Code, "role∈{admin} is a closed enum; any other value must be rejected")
}

func TestInviteMemberDefaultsUnsetRoleToAdmin(t *testing.T) {
	h := newTestWorkspaceHandlers()

	createBody, _ := json.Marshal(map[string]string{"name": "prod"})
	createReq := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/workspaces", bytes.NewReader(createBody)), "owner-1")
	createRec := httptest.NewRecorder()
	h.Create(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)

	var created workspace.Workspace
	require.NoError(t, json.NewDecoder(createRec.Body).Decode(&created))

	inviteBody, _ := json.Marshal(map[string]string{"email": "friend@example.com"})
	inviteReq := withCaller(httptest.NewRequest(http.MethodPost, "/api/v1/workspaces/"+created.ID+"/members", bytes.NewReader(inviteBody)), "owner-1")
	inviteReq = mux.SetURLVars(inviteReq, map[string]string{"workspace_id": created.ID})
	inviteRec := httptest.NewRecorder()
	h.InviteMember(inviteRec, inviteReq)

	require.Equal(t, http.StatusCreated, inviteRec.Code)
	var member workspace.Member
	require.NoError(t, json.NewDecoder(inviteRec.Body).Decode(&member))
	assert.Equal(t, workspace.RoleAdmin, member.Role)
}
