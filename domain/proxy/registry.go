// Package proxy implements the workspace-proxy security boundary: header
// sanitization wiring and the SSE/WebSocket stream lifecycle
// (spec.md §4.8, §4.9).
package proxy

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/metrics"
)

// StreamState is a StreamSession's lifecycle stage.
type StreamState string

const (
	StreamRegistered StreamState = "registered"
	StreamActive     StreamState = "active"
	StreamClosing    StreamState = "closing"
	StreamClosed     StreamState = "closed"
)

// StreamSession tracks one proxied SSE/WebSocket connection.
type StreamSession struct {
	ID            string
	WorkspaceID   string
	State         StreamState
	CreatedAt     time.Time
	ClosedAt      *time.Time
	upstreamCancel context.CancelFunc
}

// StreamRegistry enforces the per-workspace concurrent stream limit and
// tracks every live proxied stream's lifecycle.
type StreamRegistry struct {
	mu         sync.Mutex
	byWorkspace map[string]map[string]*StreamSession
	maxPerWorkspace int
	metrics    *metrics.Metrics
}

// NewStreamRegistry builds a StreamRegistry enforcing maxPerWorkspace
// concurrent streams per workspace.
func NewStreamRegistry(maxPerWorkspace int, m *metrics.Metrics) *StreamRegistry {
	return &StreamRegistry{
		byWorkspace:     make(map[string]map[string]*StreamSession),
		maxPerWorkspace: maxPerWorkspace,
		metrics:         m,
	}
}

// Register allocates a StreamSession in state registered, rejecting the
// request with stream_limit_exceeded once the workspace is already at its
// concurrency limit.
func (r *StreamRegistry) Register(workspaceID string, upstreamCancel context.CancelFunc) (*StreamSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.byWorkspace[workspaceID]
	if len(sessions) >= r.maxPerWorkspace {
		return nil, cperrors.StreamLimitExceeded(r.maxPerWorkspace)
	}

	session := &StreamSession{
		ID:             uuid.NewString(),
		WorkspaceID:    workspaceID,
		State:          StreamRegistered,
		CreatedAt:      time.Now(),
		upstreamCancel: upstreamCancel,
	}
	if sessions == nil {
		sessions = make(map[string]*StreamSession)
		r.byWorkspace[workspaceID] = sessions
	}
	sessions[session.ID] = session
	r.setActiveGauge(workspaceID)
	return session, nil
}

// MarkActive transitions a session from registered to active on first
// upstream byte.
func (r *StreamRegistry) MarkActive(session *StreamSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.State == StreamRegistered {
		session.State = StreamActive
	}
}

// CloseFromClient handles a client-initiated disconnect: it cancels the
// upstream request context, propagating the cancellation, then removes the
// session.
func (r *StreamRegistry) CloseFromClient(session *StreamSession) {
	r.transitionClosing(session)
	if session.upstreamCancel != nil {
		session.upstreamCancel()
	}
	r.finalizeClosed(session)
}

// CloseFromUpstream handles the upstream runtime closing the stream; the
// client-facing connection is closed in turn by the caller.
func (r *StreamRegistry) CloseFromUpstream(session *StreamSession) {
	r.transitionClosing(session)
	r.finalizeClosed(session)
}

func (r *StreamRegistry) transitionClosing(session *StreamSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.State = StreamClosing
}

func (r *StreamRegistry) finalizeClosed(session *StreamSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	session.State = StreamClosed
	session.ClosedAt = &now
	delete(r.byWorkspace[session.WorkspaceID], session.ID)
	if len(r.byWorkspace[session.WorkspaceID]) == 0 {
		delete(r.byWorkspace, session.WorkspaceID)
	}
	r.setActiveGauge(session.WorkspaceID)
}

// setActiveGauge must be called with r.mu held.
func (r *StreamRegistry) setActiveGauge(workspaceID string) {
	if r.metrics == nil {
		return
	}
	r.metrics.SetActiveStreams(workspaceID, len(r.byWorkspace[workspaceID]))
}

// Count returns the number of live sessions for workspaceID, used by
// tests asserting quiescence reconciles to zero.
func (r *StreamRegistry) Count(workspaceID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byWorkspace[workspaceID])
}
