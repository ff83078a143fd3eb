// Package errors provides the control plane's stable, machine-readable
// error taxonomy (spec.md §7). Every error that crosses the HTTP boundary
// is a *ServiceError carrying one of these codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable error code.
type Code string

const (
	// Auth
	CodeNoCredentials     Code = "no_credentials"
	CodeInvalidSignature  Code = "invalid_signature"
	CodeTokenExpired      Code = "token_expired"
	CodeInvalidAudience   Code = "invalid_audience"
	CodeMissingClaim      Code = "missing_claim"
	CodeInvalidSession    Code = "invalid_session"
	CodeSessionExpired    Code = "session_expired"
	CodeJWKSFetchError    Code = "jwks_fetch_error"
	CodeAuthCallbackFail  Code = "auth_callback_failed"
	CodeMalformedToken    Code = "malformed"

	// Context
	CodeWorkspaceContextMismatch Code = "workspace_context_mismatch"
	CodeAppContextMismatch       Code = "app_context_mismatch"
	CodeAppConfigNotFound        Code = "app_config_not_found"

	// Authorization
	CodeAuthRequired     Code = "AUTH_REQUIRED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeWorkspaceNotFound Code = "WORKSPACE_NOT_FOUND"

	// Provisioning
	CodeStepTimeout               Code = "STEP_TIMEOUT"
	CodeArtifactChecksumMismatch  Code = "ARTIFACT_CHECKSUM_MISMATCH"
	CodeReleaseUnavailable        Code = "RELEASE_UNAVAILABLE"
	CodeActiveJobConflict         Code = "active_job_conflict"

	// Sharing
	CodeShareNotFound  Code = "share_not_found"
	CodeShareRevoked   Code = "share_revoked"
	CodeShareExpired   Code = "share_expired"
	CodePathMismatch   Code = "path_mismatch"
	CodePathTraversal  Code = "path_traversal"

	// Proxy/Stream
	CodeUpstreamUnavailable  Code = "upstream_unavailable"
	CodeStreamLimitExceeded  Code = "stream_limit_exceeded"

	// CSRF
	CodeCSRFInvalid Code = "csrf_invalid"

	// Idempotency
	CodeConflictInFlight Code = "conflict_in_flight"
	CodeIdempotencyReplay Code = "idempotency_replay"

	// Generic
	CodeInternal Code = "internal_error"
)

// ServiceError is the structured error type every handler returns. Its
// Error() never includes the submitted credential or request body
// (spec.md §7).
type ServiceError struct {
	Code       Code                   `json:"error"`
	Message    string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
	err        error
}

func (e *ServiceError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.err }

// WithDetail attaches a detail key/value, used e.g. to list each present
// workspace-context source on a workspace_context_mismatch.
func (e *ServiceError) WithDetail(key string, value interface{}) *ServiceError {
	if e.Detail == nil {
		e.Detail = make(map[string]interface{})
	}
	e.Detail[key] = value
	return e
}

// New creates a ServiceError for the given code/status.
func New(code Code, message string, status int) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status}
}

// Wrap creates a ServiceError carrying an underlying cause. The cause is
// never serialized to the client; it is for server-side logging only.
func Wrap(code Code, message string, status int, cause error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, err: cause}
}

// Convenience constructors matching spec.md §7's taxonomy.

func NoCredentials() *ServiceError {
	return New(CodeNoCredentials, "no credentials supplied", http.StatusUnauthorized)
}

func InvalidSignature(cause error) *ServiceError {
	return Wrap(CodeInvalidSignature, "invalid token signature", http.StatusUnauthorized, cause)
}

func TokenExpired() *ServiceError {
	return New(CodeTokenExpired, "token has expired", http.StatusUnauthorized)
}

func InvalidAudience() *ServiceError {
	return New(CodeInvalidAudience, "token audience mismatch", http.StatusUnauthorized)
}

func MissingClaim(claim string) *ServiceError {
	return New(CodeMissingClaim, "token missing required claim", http.StatusUnauthorized).WithDetail("claim", claim)
}

func InvalidSession() *ServiceError {
	return New(CodeInvalidSession, "invalid session credential", http.StatusUnauthorized)
}

func SessionExpired() *ServiceError {
	return New(CodeSessionExpired, "session has expired", http.StatusUnauthorized)
}

func JWKSFetchError(cause error) *ServiceError {
	return Wrap(CodeJWKSFetchError, "failed to fetch signing keys", http.StatusServiceUnavailable, cause)
}

func AuthCallbackFailed(cause error) *ServiceError {
	return Wrap(CodeAuthCallbackFail, "auth callback failed", http.StatusUnauthorized, cause)
}

func Malformed(cause error) *ServiceError {
	return Wrap(CodeMalformedToken, "malformed credential", http.StatusUnauthorized, cause)
}

func WorkspaceContextMismatch(sources map[string]interface{}) *ServiceError {
	e := New(CodeWorkspaceContextMismatch, "workspace id disagrees across sources", http.StatusBadRequest)
	e.Detail = sources
	return e
}

func AppContextMismatch() *ServiceError {
	return New(CodeAppContextMismatch, "app id does not match workspace's app", http.StatusBadRequest)
}

func AppConfigNotFound() *ServiceError {
	return New(CodeAppConfigNotFound, "no app config registered for host", http.StatusNotFound)
}

func AuthRequired() *ServiceError {
	return New(CodeAuthRequired, "authentication required", http.StatusUnauthorized)
}

func Forbidden(message string) *ServiceError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

func WorkspaceNotFound() *ServiceError {
	return New(CodeWorkspaceNotFound, "workspace not found", http.StatusNotFound)
}

func StepTimeout(state string, elapsed string) *ServiceError {
	return New(CodeStepTimeout, "provisioning step timed out", http.StatusConflict).
		WithDetail("state", state).WithDetail("elapsed", elapsed)
}

func ArtifactChecksumMismatch(expected, observed string) *ServiceError {
	return New(CodeArtifactChecksumMismatch, "artifact checksum mismatch", http.StatusConflict).
		WithDetail("expected", expected).WithDetail("observed", observed)
}

func ReleaseUnavailable(reason string) *ServiceError {
	return New(CodeReleaseUnavailable, "no resolvable release", http.StatusConflict).WithDetail("reason", reason)
}

func ActiveJobConflict() *ServiceError {
	return New(CodeActiveJobConflict, "a provisioning job is already active for this workspace", http.StatusConflict)
}

func ShareNotFound() *ServiceError {
	return New(CodeShareNotFound, "share link not found", http.StatusNotFound)
}

func ShareRevoked() *ServiceError {
	return New(CodeShareRevoked, "share link revoked", http.StatusNotFound)
}

func ShareExpired() *ServiceError {
	return New(CodeShareExpired, "share link expired", http.StatusGone)
}

func PathMismatch() *ServiceError {
	return New(CodePathMismatch, "path does not match share link grant", http.StatusForbidden)
}

func PathTraversal() *ServiceError {
	return New(CodePathTraversal, "path traversal rejected", http.StatusBadRequest)
}

func UpstreamUnavailable(cause error) *ServiceError {
	return Wrap(CodeUpstreamUnavailable, "workspace runtime unavailable", http.StatusBadGateway, cause)
}

func StreamLimitExceeded(limit int) *ServiceError {
	return New(CodeStreamLimitExceeded, "too many concurrent streams for this workspace", http.StatusTooManyRequests).
		WithDetail("limit", limit)
}

func CSRFInvalid() *ServiceError {
	return New(CodeCSRFInvalid, "csrf token missing or invalid", http.StatusForbidden)
}

func ConflictInFlight() *ServiceError {
	return New(CodeConflictInFlight, "a conflicting operation is already in flight", http.StatusConflict)
}

func IdempotencyReplay() *ServiceError {
	return New(CodeIdempotencyReplay, "idempotency key reused with different parameters", http.StatusConflict)
}

func Internal(cause error) *ServiceError {
	return Wrap(CodeInternal, "internal server error", http.StatusInternalServerError, cause)
}

// As extracts a *ServiceError from an error chain.
func As(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// HTTPStatus returns the HTTP status for any error, defaulting to 500 for
// errors outside the taxonomy (spec.md §7's "internal exceptions map to
// 500" propagation policy).
func HTTPStatus(err error) int {
	if svcErr, ok := As(err); ok {
		return svcErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
