package api

import (
	"encoding/json"
	"net/http"

	"github.com/boringdata/boring-ui-controlplane/domain/identity"
	"github.com/boringdata/boring-ui-controlplane/domain/workspace"
	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/httputil"
)

// AuthHandlers exposes the identity callback, logout, and /me routes
// (spec.md §4.2, §4.3).
type AuthHandlers struct {
	verifier *identity.TokenVerifier
	issuer   *identity.SessionIssuer
	guard    *identity.AuthGuard
	members  *workspace.Service
}

// NewAuthHandlers builds AuthHandlers.
func NewAuthHandlers(verifier *identity.TokenVerifier, issuer *identity.SessionIssuer, guard *identity.AuthGuard, members *workspace.Service) *AuthHandlers {
	return &AuthHandlers{verifier: verifier, issuer: issuer, guard: guard, members: members}
}

type callbackRequest struct {
	IdentityToken string `json:"identity_token"`
}

// Callback handles POST /api/v1/auth/callback: it verifies an inbound
// identity token from the IdP, issues a fresh session (never reusing a
// prior session identifier — session-fixation protection), promotes a
// pending invite for the caller's email in the workspace named by the
// token's workspace claim (when the token carries both), and sets the
// session cookie.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, cperrors.New(cperrors.CodeMalformedToken, "invalid request body", http.StatusBadRequest))
		return
	}

	claims, err := h.verifier.Verify(req.IdentityToken)
	if err != nil {
		httputil.WriteError(w, cperrors.AuthCallbackFailed(err))
		return
	}

	token, sessionClaims, err := h.issuer.Issue(claims.UserID, claims.Email, claims.Role, claims.WorkspaceID)
	if err != nil {
		httputil.WriteError(w, cperrors.AuthCallbackFailed(err))
		return
	}

	if h.members != nil && claims.WorkspaceID != "" && claims.Email != "" {
		_ = h.members.InviteAutoAccept(r.Context(), claims.WorkspaceID, claims.UserID, claims.Email)
	}

	h.guard.SetCookie(w, token, sessionClaims)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"user_id": claims.UserID})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.guard.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/me.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity.SessionClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, cperrors.AuthRequired())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      claims.UserID,
		"email":        claims.Email,
		"role":         claims.Role,
		"workspace_id": claims.WorkspaceID,
	})
}
