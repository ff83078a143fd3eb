package sharelink

import (
	"context"
	"time"

	"github.com/google/uuid"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
)

// Service implements share-link creation, revocation, listing, and
// resolution (spec.md §4.10).
type Service struct {
	repo   Repository
	logger *logging.Logger
	now    func() time.Time
}

// NewService builds a Service. now defaults to time.Now when nil.
func NewService(repo Repository, logger *logging.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, logger: logger, now: now}
}

// Create issues a fresh share link for path with the given access level and
// optional expiry (zero duration means no expiry). The plaintext token is
// returned exactly once and is never persisted.
func (s *Service) Create(ctx context.Context, workspaceID, createdBy, rawPath string, access Access, ttl time.Duration, maxUses int) (plaintextToken string, link *ShareLink, err error) {
	path, err := NormalizePath(rawPath)
	if err != nil {
		return "", nil, err
	}

	token, err := newToken()
	if err != nil {
		return "", nil, cperrors.Internal(err)
	}

	var expiresAt *time.Time
	if ttl > 0 {
		t := s.now().Add(ttl)
		expiresAt = &t
	}

	created := &ShareLink{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Path:        path,
		TokenHash:   hashToken(token),
		Access:      access,
		CreatedBy:   createdBy,
		MaxUses:     maxUses,
		CreatedAt:   s.now(),
		ExpiresAt:   expiresAt,
	}

	if err := s.repo.Create(ctx, created); err != nil {
		return "", nil, err
	}

	logAudit(ctx, s.logger, "create", workspaceID, created.ID, token, map[string]interface{}{
		"path": path, "access": string(access),
	})
	return token, created, nil
}

// List returns every share link for a workspace (token hashes only; the
// plaintext is never recoverable).
func (s *Service) List(ctx context.Context, workspaceID string) ([]ShareLink, error) {
	return s.repo.ListByWorkspace(ctx, workspaceID)
}

// Revoke marks a share link revoked. Revocation is idempotent.
func (s *Service) Revoke(ctx context.Context, workspaceID, actorID, shareID string) error {
	link, err := s.repo.GetByID(ctx, workspaceID, shareID)
	if err != nil {
		return err
	}
	if err := s.repo.Revoke(ctx, workspaceID, shareID); err != nil {
		return err
	}
	logAudit(ctx, s.logger, "revoke", workspaceID, shareID, "", map[string]interface{}{
		"actor_id": actorID, "path": link.Path,
	})
	return nil
}

// Resolve looks up a share link by its plaintext token and enforces the
// full resolution outcome table: not-found, revoked, expired, uses
// exceeded, path mismatch, and access shortfall (spec.md §4.10).
func (s *Service) Resolve(ctx context.Context, plaintextToken, requestedPath string, requestedAccess Access) (*ShareLink, error) {
	link, err := s.repo.GetByTokenHash(ctx, hashToken(plaintextToken))
	if err != nil {
		if err == ErrNotFound {
			return nil, cperrors.ShareNotFound()
		}
		return nil, err
	}

	if link.isRevoked() {
		logAudit(ctx, s.logger, "deny", link.WorkspaceID, link.ID, plaintextToken, map[string]interface{}{"reason": "revoked"})
		return nil, cperrors.ShareRevoked()
	}
	if link.isExpired(s.now()) {
		logAudit(ctx, s.logger, "deny", link.WorkspaceID, link.ID, plaintextToken, map[string]interface{}{"reason": "expired"})
		return nil, cperrors.ShareExpired()
	}
	if link.usesExceeded() {
		logAudit(ctx, s.logger, "deny", link.WorkspaceID, link.ID, plaintextToken, map[string]interface{}{"reason": "uses_exceeded"})
		return nil, cperrors.Forbidden("share link use limit exceeded")
	}

	normalizedRequested, err := NormalizePath(requestedPath)
	if err != nil {
		return nil, err
	}
	if normalizedRequested != link.Path {
		logAudit(ctx, s.logger, "deny", link.WorkspaceID, link.ID, plaintextToken, map[string]interface{}{"reason": "path_mismatch"})
		return nil, cperrors.PathMismatch()
	}

	if !link.Access.grants(requestedAccess) {
		logAudit(ctx, s.logger, "deny", link.WorkspaceID, link.ID, plaintextToken, map[string]interface{}{"reason": "access_exceeded"})
		return nil, cperrors.Forbidden("share link does not grant the requested access level")
	}

	if err := s.repo.RecordUse(ctx, link.ID); err != nil {
		return nil, err
	}

	action := "access"
	if requestedAccess == AccessWrite {
		action = "write"
	}
	logAudit(ctx, s.logger, action, link.WorkspaceID, link.ID, plaintextToken, map[string]interface{}{"path": link.Path})

	return link, nil
}
