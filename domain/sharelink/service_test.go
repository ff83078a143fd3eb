package sharelink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
)

// memStore is a minimal in-package Repository fake, avoiding an import
// cycle with storage/memory (which imports this package's types).
type memStore struct {
	byID    map[string]*ShareLink
	byHash  map[string]*ShareLink
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]*ShareLink{}, byHash: map[string]*ShareLink{}}
}

func (m *memStore) Create(ctx context.Context, link *ShareLink) error {
	cp := *link
	m.byID[link.ID] = &cp
	m.byHash[link.TokenHash] = &cp
	return nil
}

func (m *memStore) GetByTokenHash(ctx context.Context, hash string) (*ShareLink, error) {
	link, ok := m.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *link
	return &cp, nil
}

func (m *memStore) GetByID(ctx context.Context, workspaceID, id string) (*ShareLink, error) {
	link, ok := m.byID[id]
	if !ok || link.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	cp := *link
	return &cp, nil
}

func (m *memStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]ShareLink, error) {
	var out []ShareLink
	for _, link := range m.byID {
		if link.WorkspaceID == workspaceID {
			out = append(out, *link)
		}
	}
	return out, nil
}

func (m *memStore) Revoke(ctx context.Context, workspaceID, id string) error {
	link, ok := m.byID[id]
	if !ok || link.WorkspaceID != workspaceID {
		return ErrNotFound
	}
	now := time.Now()
	link.RevokedAt = &now
	m.byHash[link.TokenHash].RevokedAt = &now
	return nil
}

func (m *memStore) RecordUse(ctx context.Context, id string) error {
	link, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	link.UseCount++
	m.byHash[link.TokenHash].UseCount++
	return nil
}

func testLogger() *logging.Logger {
	return logging.New("test", "error", "json")
}

func TestServiceResolveOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("successful read resolution", func(t *testing.T) {
		store := newMemStore()
		svc := NewService(store, testLogger(), nil)
		token, link, err := svc.Create(ctx, "ws-1", "user-1", "/docs/readme.md", AccessRead, 0, 0)
		require.NoError(t, err)

		resolved, err := svc.Resolve(ctx, token, "/docs/readme.md", AccessRead)
		require.NoError(t, err)
		assert.Equal(t, link.ID, resolved.ID)
	})

	t.Run("unknown token", func(t *testing.T) {
		store := newMemStore()
		svc := NewService(store, testLogger(), nil)
		_, err := svc.Resolve(ctx, "nonexistent", "/x", AccessRead)
		svcErr, ok := cperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, cperrors.CodeShareNotFound, svcErr.Code)
	})

	t.Run("revoked link is denied", func(t *testing.T) {
		store := newMemStore()
		svc := NewService(store, testLogger(), nil)
		token, link, err := svc.Create(ctx, "ws-1", "user-1", "/docs/readme.md", AccessRead, 0, 0)
		require.NoError(t, err)
		require.NoError(t, svc.Revoke(ctx, "ws-1", "user-1", link.ID))

		_, err = svc.Resolve(ctx, token, "/docs/readme.md", AccessRead)
		svcErr, ok := cperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, cperrors.CodeShareRevoked, svcErr.Code)
	})

	t.Run("expired link is denied", func(t *testing.T) {
		store := newMemStore()
		frozen := time.Now()
		svc := NewService(store, testLogger(), func() time.Time { return frozen })
		token, _, err := svc.Create(ctx, "ws-1", "user-1", "/docs/readme.md", AccessRead, time.Minute, 0)
		require.NoError(t, err)

		later := frozen.Add(2 * time.Minute)
		svc.now = func() time.Time { return later }
		_, err = svc.Resolve(ctx, token, "/docs/readme.md", AccessRead)
		svcErr, ok := cperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, cperrors.CodeShareExpired, svcErr.Code)
	})

	t.Run("use limit exhausted", func(t *testing.T) {
		store := newMemStore()
		svc := NewService(store, testLogger(), nil)
		token, _, err := svc.Create(ctx, "ws-1", "user-1", "/docs/readme.md", AccessRead, 0, 1)
		require.NoError(t, err)

		_, err = svc.Resolve(ctx, token, "/docs/readme.md", AccessRead)
		require.NoError(t, err)

		_, err = svc.Resolve(ctx, token, "/docs/readme.md", AccessRead)
		svcErr, ok := cperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, cperrors.CodeForbidden, svcErr.Code)
	})

	t.Run("path mismatch is denied", func(t *testing.T) {
		store := newMemStore()
		svc := NewService(store, testLogger(), nil)
		token, _, err := svc.Create(ctx, "ws-1", "user-1", "/docs/readme.md", AccessRead, 0, 0)
		require.NoError(t, err)

		_, err = svc.Resolve(ctx, token, "/docs/other.md", AccessRead)
		svcErr, ok := cperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, cperrors.CodePathMismatch, svcErr.Code)
	})

	t.Run("read-only link cannot satisfy a write request", func(t *testing.T) {
		store := newMemStore()
		svc := NewService(store, testLogger(), nil)
		token, _, err := svc.Create(ctx, "ws-1", "user-1", "/docs/readme.md", AccessRead, 0, 0)
		require.NoError(t, err)

		_, err = svc.Resolve(ctx, token, "/docs/readme.md", AccessWrite)
		svcErr, ok := cperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, cperrors.CodeForbidden, svcErr.Code)
	})

	t.Run("write link satisfies a read request", func(t *testing.T) {
		store := newMemStore()
		svc := NewService(store, testLogger(), nil)
		token, _, err := svc.Create(ctx, "ws-1", "user-1", "/docs/readme.md", AccessWrite, 0, 0)
		require.NoError(t, err)

		_, err = svc.Resolve(ctx, token, "/docs/readme.md", AccessRead)
		require.NoError(t, err)
	})
}
