package provisioning

import (
	"context"
	"time"

	"github.com/google/uuid"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
)

// Service wraps the StateMachine with the durability and concurrency
// guarantees spec.md §4.6 requires: idempotent creation, single active job
// per workspace, cross-workspace isolation, and gated retry.
type Service struct {
	repo    Repository
	machine *StateMachine
}

// NewService builds a provisioning Service.
func NewService(repo Repository, machine *StateMachine) *Service {
	return &Service{repo: repo, machine: machine}
}

// CreateJob creates a new provisioning job for workspaceID, or returns the
// previously created job whose idempotencyKey matches, whatever its state.
// When the workspace already has an active job and idempotencyKey is empty
// or does not match it, it fails with active_job_conflict. Concurrent callers
// racing on the same workspace converge on exactly one persisted job: the
// repository's CreateJob performs the check-and-insert atomically.
func (s *Service) CreateJob(ctx context.Context, workspaceID, appID, environment, idempotencyKey string) (*ProvisioningJob, error) {
	now := time.Now()
	candidate := &ProvisioningJob{
		ID:             uuid.NewString(),
		WorkspaceID:    workspaceID,
		AppID:          appID,
		Environment:    environment,
		State:          StateQueued,
		IdempotencyKey: idempotencyKey,
		Attempt:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
		StepStartedAt:  now,
	}

	result, inserted, err := s.repo.CreateJob(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if !inserted && (idempotencyKey == "" || result.IdempotencyKey != idempotencyKey) {
		return nil, cperrors.ActiveJobConflict()
	}
	return result, nil
}

// ListJobs lists every job ever created for a workspace, most recent first.
func (s *Service) ListJobs(ctx context.Context, workspaceID string) ([]ProvisioningJob, error) {
	return s.repo.ListJobsByWorkspace(ctx, workspaceID)
}

// GetJob fetches a job by id, scoped to workspaceID so a caller cannot
// probe another workspace's job ids.
func (s *Service) GetJob(ctx context.Context, workspaceID, jobID string) (*ProvisioningJob, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	return job, nil
}

// Advance applies the state machine's forward transition and timeout check
// to an existing job, persisting the result. It is the step that a
// provisioning worker calls after completing the work for a state (e.g.
// after uploading an artifact, before verifying its checksum).
func (s *Service) Advance(ctx context.Context, job *ProvisioningJob) error {
	if s.machine.CheckTimeout(job) {
		return s.repo.UpdateJob(ctx, job)
	}
	if err := s.machine.Advance(job); err != nil {
		return err
	}
	return s.repo.UpdateJob(ctx, job)
}

// Fail records a failure on job and persists it.
func (s *Service) Fail(ctx context.Context, job *ProvisioningJob, code, detail string) error {
	s.machine.Fail(job, code, detail)
	return s.repo.UpdateJob(ctx, job)
}

// RetryFromError retries a terminal-error job. Retry is only legal when
// the job is currently in StateError; any other state is a conflict.
func (s *Service) RetryFromError(ctx context.Context, workspaceID, jobID string) (*ProvisioningJob, error) {
	job, err := s.GetJob(ctx, workspaceID, jobID)
	if err != nil {
		return nil, err
	}
	if err := s.machine.RetryFromError(job); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}
