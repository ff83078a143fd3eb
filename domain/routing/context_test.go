package routing_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boringdata/boring-ui-controlplane/domain/identity"
	"github.com/boringdata/boring-ui-controlplane/domain/routing"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
)

type errorEnvelope struct {
	Error  string                 `json:"error"`
	Detail map[string]interface{} `json:"detail"`
}

func newWorkspaceContextRouter(echo http.HandlerFunc) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/api/v1/workspaces/{workspace_id}", routing.WorkspaceContext()(echo))
	return r
}

func TestWorkspaceContextPathOnlyResolves(t *testing.T) {
	var resolved string
	router := newWorkspaceContextRouter(func(w http.ResponseWriter, r *http.Request) {
		resolved = logging.WorkspaceID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces/ws-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ws-1", resolved)
}

func TestWorkspaceContextHeaderAgreesWithPath(t *testing.T) {
	var resolved string
	router := newWorkspaceContextRouter(func(w http.ResponseWriter, r *http.Request) {
		resolved = logging.WorkspaceID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces/ws-1", nil)
	req.Header.Set("X-Workspace-ID", "ws-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ws-1", resolved)
}

func TestWorkspaceContextHeaderDisagreesWithPathIsMismatch(t *testing.T) {
	router := newWorkspaceContextRouter(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run on a source disagreement")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces/ws-1", nil)
	req.Header.Set("X-Workspace-ID", "ws-2")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "workspace_context_mismatch", body.Error)
	assert.Equal(t, "ws-1", body.Detail["path"])
	assert.Equal(t, "ws-2", body.Detail["header"])
}

func TestWorkspaceContextSessionDisagreesWithPathIsMismatch(t *testing.T) {
	router := mux.NewRouter()
	router.Handle("/api/v1/workspaces/{workspace_id}", routing.WorkspaceContext()(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run on a source disagreement")
		},
	)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces/ws-1", nil)
	claims := &identity.SessionClaims{UserID: "user-1", WorkspaceID: "ws-3"}
	req = req.WithContext(identity.WithSessionClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "workspace_context_mismatch", body.Error)
	assert.Equal(t, "ws-1", body.Detail["path"])
	assert.Equal(t, "ws-3", body.Detail["session"])
}

func TestWorkspaceContextNoSourcesIsWorkspaceNotFound(t *testing.T) {
	router := mux.NewRouter()
	router.Handle("/api/v1/me", routing.WorkspaceContext()(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run with no resolvable workspace id")
		},
	)))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAppContextUnresolvedHostIsNoOp(t *testing.T) {
	resolver := identity.NewHostResolver(map[string]string{}, "")
	called := false
	router := mux.NewRouter()
	router.Handle("/api/v1/workspaces/{workspace_id}", routing.AppContext(resolver, func(ctx context.Context, workspaceID string) (string, bool) {
		t.Fatal("lookup must not run when the host itself cannot be resolved")
		return "", false
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces/ws-1", nil)
	req.Host = "unregistered.example.com"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestAppContextMismatchedAppRejected(t *testing.T) {
	resolver := identity.NewHostResolver(map[string]string{"tenant-a.example.com": "app-a"}, "")
	router := mux.NewRouter()
	router.Handle("/api/v1/workspaces/{workspace_id}", routing.AppContext(resolver, func(ctx context.Context, workspaceID string) (string, bool) {
		return "app-b", true
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run when the workspace belongs to a different app")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces/ws-1", nil)
	req.Host = "tenant-a.example.com"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "app_context_mismatch", body.Error)
}

func TestAppContextMatchingAppPasses(t *testing.T) {
	resolver := identity.NewHostResolver(map[string]string{"tenant-a.example.com": "app-a"}, "")
	var resolvedAppID string
	router := mux.NewRouter()
	router.Handle("/api/v1/workspaces/{workspace_id}", routing.AppContext(resolver, func(ctx context.Context, workspaceID string) (string, bool) {
		return "app-a", true
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolvedAppID = logging.AppID(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces/ws-1", nil)
	req.Host = "tenant-a.example.com"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "app-a", resolvedAppID)
}
