package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/boringdata/boring-ui-controlplane/domain/provisioning"
	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/httputil"
)

// ProvisioningHandlers exposes the provisioning job routes (spec.md §4.6).
type ProvisioningHandlers struct {
	service *provisioning.Service
}

// NewProvisioningHandlers builds ProvisioningHandlers.
func NewProvisioningHandlers(service *provisioning.Service) *ProvisioningHandlers {
	return &ProvisioningHandlers{service: service}
}

type createJobRequest struct {
	AppID          string `json:"app_id"`
	Environment    string `json:"environment"`
	IdempotencyKey string `json:"idempotency_key"`
}

// Create handles POST /api/v1/workspaces/{workspace_id}/provisioning-jobs.
func (h *ProvisioningHandlers) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, cperrors.New(cperrors.CodeMalformedToken, "invalid request body", http.StatusBadRequest))
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	workspaceID := mux.Vars(r)["workspace_id"]
	job, err := h.service.CreateJob(r.Context(), workspaceID, req.AppID, req.Environment, req.IdempotencyKey)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, job)
}

// List handles GET /api/v1/workspaces/{workspace_id}/provisioning-jobs.
func (h *ProvisioningHandlers) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}
	jobs, err := h.service.ListJobs(r.Context(), mux.Vars(r)["workspace_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// Get handles GET /api/v1/workspaces/{workspace_id}/provisioning-jobs/{job_id}.
func (h *ProvisioningHandlers) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}
	vars := mux.Vars(r)
	job, err := h.service.GetJob(r.Context(), vars["workspace_id"], vars["job_id"])
	if err != nil {
		if err == provisioning.ErrNotFound {
			httputil.WriteError(w, cperrors.WorkspaceNotFound())
			return
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}

// Retry handles POST /api/v1/workspaces/{workspace_id}/provisioning-jobs/{job_id}/retry.
func (h *ProvisioningHandlers) Retry(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}
	vars := mux.Vars(r)
	job, err := h.service.RetryFromError(r.Context(), vars["workspace_id"], vars["job_id"])
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}
