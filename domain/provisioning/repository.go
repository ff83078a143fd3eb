package provisioning

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups that find no matching job.
var ErrNotFound = errors.New("provisioning: job not found")

// Repository defines provisioning-job persistence. CreateJob must be
// atomic with respect to both the single-active-job and idempotent-create
// invariants: storage/postgres enforces this with partial unique indexes
// plus an INSERT ... ON CONFLICT DO NOTHING pattern, storage/memory with a
// single mutex-guarded check-then-write.
type Repository interface {
	// CreateJob inserts job only if no non-terminal job already exists for
	// job.WorkspaceID, and only if no job already exists for
	// (job.WorkspaceID, job.IdempotencyKey) when IdempotencyKey is set. It
	// returns the job that now represents the workspace's active/idempotent
	// job — either the one just inserted, or the pre-existing one — and a
	// bool reporting whether insertion actually happened.
	CreateJob(ctx context.Context, job *ProvisioningJob) (result *ProvisioningJob, inserted bool, err error)
	GetJob(ctx context.Context, id string) (*ProvisioningJob, error)
	GetActiveJob(ctx context.Context, workspaceID string) (*ProvisioningJob, error)
	UpdateJob(ctx context.Context, job *ProvisioningJob) error
	ListActiveJobs(ctx context.Context) ([]ProvisioningJob, error)
	ListJobsByWorkspace(ctx context.Context, workspaceID string) ([]ProvisioningJob, error)
}
