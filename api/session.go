package api

import (
	"encoding/json"
	"net/http"

	"github.com/boringdata/boring-ui-controlplane/domain/identity"
	"github.com/boringdata/boring-ui-controlplane/domain/workspace"
	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/httputil"
)

// SessionHandlers exposes the caller's current active workspace, the
// per-session "last workspace visited" pointer carried alongside the
// session cookie itself (spec.md §6's /api/v1/session/active-workspace).
type SessionHandlers struct {
	issuer  *identity.SessionIssuer
	guard   *identity.AuthGuard
	service *workspace.Service
}

// NewSessionHandlers builds SessionHandlers.
func NewSessionHandlers(issuer *identity.SessionIssuer, guard *identity.AuthGuard, service *workspace.Service) *SessionHandlers {
	return &SessionHandlers{issuer: issuer, guard: guard, service: service}
}

// GetActiveWorkspace handles GET /api/v1/session/active-workspace: 200
// with the workspace_id carried on the current session, or 404 when none
// is set.
func (h *SessionHandlers) GetActiveWorkspace(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity.SessionClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, cperrors.AuthRequired())
		return
	}
	if claims.WorkspaceID == "" {
		httputil.WriteError(w, cperrors.WorkspaceNotFound())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"workspace_id": claims.WorkspaceID})
}

type setActiveWorkspaceRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

// PutActiveWorkspace handles PUT /api/v1/session/active-workspace: it
// verifies the caller is an active member of the named workspace, then
// re-issues the session cookie carrying that workspace_id. A matching
// re-issue (never a mutation of the existing token) preserves the
// session-fixation protection spec.md §4.3 requires of every issuance
// path.
func (h *SessionHandlers) PutActiveWorkspace(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity.SessionClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, cperrors.AuthRequired())
		return
	}
	var req setActiveWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WorkspaceID == "" {
		httputil.WriteError(w, cperrors.New(cperrors.CodeMalformedToken, "invalid request body", http.StatusBadRequest))
		return
	}

	if _, err := h.service.Get(r.Context(), req.WorkspaceID, claims.UserID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, refreshed, err := h.issuer.Issue(claims.UserID, claims.Email, claims.Role, req.WorkspaceID)
	if err != nil {
		httputil.WriteError(w, cperrors.Internal(err))
		return
	}
	h.guard.SetCookie(w, token, refreshed)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"workspace_id": req.WorkspaceID})
}
