package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/boringdata/boring-ui-controlplane/domain/identity"
	"github.com/boringdata/boring-ui-controlplane/domain/workspace"
	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/httputil"
)

// WorkspaceHandlers exposes the workspace/member CRUD routes (spec.md §4.11).
type WorkspaceHandlers struct {
	service *workspace.Service
	appID   func(r *http.Request) string
}

// NewWorkspaceHandlers builds WorkspaceHandlers. appID resolves the
// requesting app's identity (set by the host resolver upstream of these
// handlers) for use on creation.
func NewWorkspaceHandlers(service *workspace.Service, appID func(r *http.Request) string) *WorkspaceHandlers {
	return &WorkspaceHandlers{service: service, appID: appID}
}

type createWorkspaceRequest struct {
	Name string `json:"name"`
}

// Create handles POST /api/v1/workspaces.
func (h *WorkspaceHandlers) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req createWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, cperrors.New(cperrors.CodeMalformedToken, "invalid request body", http.StatusBadRequest))
		return
	}

	appID := h.appID(r)
	if appID == "" {
		httputil.WriteError(w, cperrors.AppConfigNotFound())
		return
	}

	ws, err := h.service.Create(r.Context(), appID, userID, req.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ws)
}

// List handles GET /api/v1/workspaces. Listing is scoped to workspaces the
// caller owns or is an active member of; there is no cross-tenant listing.
func (h *WorkspaceHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var email string
	if claims, ok := identity.SessionClaimsFromContext(r.Context()); ok {
		email = claims.Email
	}
	workspaces, err := h.service.ListForUser(r.Context(), userID, email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"workspaces": workspaces})
}

// Get handles GET /api/v1/workspaces/{workspace_id}.
func (h *WorkspaceHandlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	ws, err := h.service.Get(r.Context(), mux.Vars(r)["workspace_id"], userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ws)
}

type renameWorkspaceRequest struct {
	Name string `json:"name"`
}

// Update handles PATCH /api/v1/workspaces/{workspace_id}.
func (h *WorkspaceHandlers) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req renameWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, cperrors.New(cperrors.CodeMalformedToken, "invalid request body", http.StatusBadRequest))
		return
	}
	ws, err := h.service.Rename(r.Context(), mux.Vars(r)["workspace_id"], userID, req.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ws)
}

// Delete handles DELETE /api/v1/workspaces/{workspace_id}.
func (h *WorkspaceHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), mux.Vars(r)["workspace_id"], userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transferOwnershipRequest struct {
	NewOwnerUserID string `json:"new_owner_user_id"`
}

// TransferOwnership handles POST /api/v1/workspaces/{workspace_id}/transfer-ownership.
func (h *WorkspaceHandlers) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req transferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, cperrors.New(cperrors.CodeMalformedToken, "invalid request body", http.StatusBadRequest))
		return
	}
	ws, err := h.service.TransferOwnership(r.Context(), mux.Vars(r)["workspace_id"], userID, req.NewOwnerUserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ws)
}

type inviteMemberRequest struct {
	Email string              `json:"email"`
	Role  workspace.MemberRole `json:"role"`
}

// ListMembers handles GET /api/v1/workspaces/{workspace_id}/members.
func (h *WorkspaceHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	workspaceID := mux.Vars(r)["workspace_id"]
	if _, err := h.service.Get(r.Context(), workspaceID, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	members, err := h.service.ListMembers(r.Context(), workspaceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"members": members})
}

// InviteMember handles POST /api/v1/workspaces/{workspace_id}/members.
func (h *WorkspaceHandlers) InviteMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req inviteMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, cperrors.New(cperrors.CodeMalformedToken, "invalid request body", http.StatusBadRequest))
		return
	}
	if req.Role == "" {
		req.Role = workspace.RoleAdmin
	}
	member, err := h.service.Invite(r.Context(), mux.Vars(r)["workspace_id"], userID, req.Email, req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, member)
}

// RemoveMember handles DELETE /api/v1/workspaces/{workspace_id}/members/{member_id}.
func (h *WorkspaceHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.service.RemoveMember(r.Context(), vars["workspace_id"], userID, vars["member_id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
