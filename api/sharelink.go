package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/boringdata/boring-ui-controlplane/domain/sharelink"
	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/httputil"
)

// ShareLinkHandlers exposes share-link management and public resolution
// routes (spec.md §4.10).
type ShareLinkHandlers struct {
	service *sharelink.Service
}

// NewShareLinkHandlers builds ShareLinkHandlers.
func NewShareLinkHandlers(service *sharelink.Service) *ShareLinkHandlers {
	return &ShareLinkHandlers{service: service}
}

type createShareLinkRequest struct {
	Path           string `json:"path"`
	Access         string `json:"access"`
	ExpiresInHours int    `json:"expires_in_hours"`
	MaxUses        int    `json:"max_uses"`
}

type createShareLinkResponse struct {
	ID        string     `json:"id"`
	Token     string     `json:"token"`
	Path      string     `json:"path"`
	Access    string     `json:"access"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Create handles POST /api/v1/workspaces/{workspace_id}/share-links.
func (h *ShareLinkHandlers) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req createShareLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, cperrors.New(cperrors.CodeMalformedToken, "invalid request body", http.StatusBadRequest))
		return
	}
	access := sharelink.Access(req.Access)
	if access == "" {
		access = sharelink.AccessRead
	}

	token, link, err := h.service.Create(r.Context(), mux.Vars(r)["workspace_id"], userID, req.Path,
		access, time.Duration(req.ExpiresInHours)*time.Hour, req.MaxUses)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, createShareLinkResponse{
		ID: link.ID, Token: token, Path: link.Path, Access: string(link.Access), ExpiresAt: link.ExpiresAt,
	})
}

// List handles GET /api/v1/workspaces/{workspace_id}/share-links.
func (h *ShareLinkHandlers) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}
	links, err := h.service.List(r.Context(), mux.Vars(r)["workspace_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"share_links": links})
}

// Revoke handles DELETE /api/v1/workspaces/{workspace_id}/share-links/{share_id}.
func (h *ShareLinkHandlers) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireCaller(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.service.Revoke(r.Context(), vars["workspace_id"], userID, vars["share_id"]); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resolve handles GET /s/{token} (public). The requested path and access
// level come from the query string; a GET always requests read access.
func (h *ShareLinkHandlers) Resolve(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	path := r.URL.Query().Get("path")

	access := sharelink.AccessRead
	if r.Method == http.MethodPut || r.Method == http.MethodPost {
		access = sharelink.AccessWrite
	}

	link, err := h.service.Resolve(r.Context(), token, path, access)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"workspace_id": link.WorkspaceID,
		"path":         link.Path,
		"access":       string(link.Access),
	})
}
