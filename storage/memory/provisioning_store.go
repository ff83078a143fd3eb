package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/boringdata/boring-ui-controlplane/domain/provisioning"
)

// ProvisioningStore is an in-memory provisioning.Repository. CreateJob
// performs its active-job and idempotency checks and the insert itself
// under one lock acquisition, so two goroutines racing to create a job for
// the same workspace converge on exactly one persisted row.
type ProvisioningStore struct {
	mu   sync.Mutex
	jobs map[string]*provisioning.ProvisioningJob
}

// NewProvisioningStore builds an empty ProvisioningStore.
func NewProvisioningStore() *ProvisioningStore {
	return &ProvisioningStore{jobs: make(map[string]*provisioning.ProvisioningJob)}
}

func (s *ProvisioningStore) CreateJob(ctx context.Context, job *provisioning.ProvisioningJob) (*provisioning.ProvisioningJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.IdempotencyKey != "" {
		for _, existing := range s.jobs {
			if existing.WorkspaceID == job.WorkspaceID && existing.IdempotencyKey == job.IdempotencyKey {
				cp := *existing
				return &cp, false, nil
			}
		}
	}

	for _, existing := range s.jobs {
		if existing.WorkspaceID == job.WorkspaceID && existing.State.IsActive() {
			cp := *existing
			return &cp, false, nil
		}
	}

	cp := *job
	s.jobs[job.ID] = &cp
	out := *job
	return &out, true, nil
}

func (s *ProvisioningStore) GetJob(ctx context.Context, id string) (*provisioning.ProvisioningJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, provisioning.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *ProvisioningStore) GetActiveJob(ctx context.Context, workspaceID string) (*provisioning.ProvisioningJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.WorkspaceID == workspaceID && job.State.IsActive() {
			cp := *job
			return &cp, nil
		}
	}
	return nil, provisioning.ErrNotFound
}

func (s *ProvisioningStore) UpdateJob(ctx context.Context, job *provisioning.ProvisioningJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return provisioning.ErrNotFound
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *ProvisioningStore) ListActiveJobs(ctx context.Context) ([]provisioning.ProvisioningJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []provisioning.ProvisioningJob
	for _, job := range s.jobs {
		if job.State.IsActive() {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (s *ProvisioningStore) ListJobsByWorkspace(ctx context.Context, workspaceID string) ([]provisioning.ProvisioningJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []provisioning.ProvisioningJob
	for _, job := range s.jobs {
		if job.WorkspaceID == workspaceID {
			out = append(out, *job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
