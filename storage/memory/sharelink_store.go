package memory

import (
	"context"
	"sync"
	"time"

	"github.com/boringdata/boring-ui-controlplane/domain/sharelink"
)

// ShareLinkStore is an in-memory sharelink.Repository.
type ShareLinkStore struct {
	mu    sync.RWMutex
	links map[string]*sharelink.ShareLink
}

// NewShareLinkStore builds an empty ShareLinkStore.
func NewShareLinkStore() *ShareLinkStore {
	return &ShareLinkStore{links: make(map[string]*sharelink.ShareLink)}
}

func (s *ShareLinkStore) Create(ctx context.Context, link *sharelink.ShareLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *link
	s.links[link.ID] = &cp
	return nil
}

func (s *ShareLinkStore) GetByTokenHash(ctx context.Context, tokenHash string) (*sharelink.ShareLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, link := range s.links {
		if link.TokenHash == tokenHash {
			cp := *link
			return &cp, nil
		}
	}
	return nil, sharelink.ErrNotFound
}

func (s *ShareLinkStore) GetByID(ctx context.Context, workspaceID, id string) (*sharelink.ShareLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[id]
	if !ok || link.WorkspaceID != workspaceID {
		return nil, sharelink.ErrNotFound
	}
	cp := *link
	return &cp, nil
}

func (s *ShareLinkStore) ListByWorkspace(ctx context.Context, workspaceID string) ([]sharelink.ShareLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []sharelink.ShareLink
	for _, link := range s.links {
		if link.WorkspaceID == workspaceID {
			out = append(out, *link)
		}
	}
	return out, nil
}

func (s *ShareLinkStore) Revoke(ctx context.Context, workspaceID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[id]
	if !ok || link.WorkspaceID != workspaceID {
		return sharelink.ErrNotFound
	}
	now := time.Now()
	link.RevokedAt = &now
	return nil
}

func (s *ShareLinkStore) RecordUse(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[id]
	if !ok {
		return sharelink.ErrNotFound
	}
	link.UseCount++
	return nil
}
