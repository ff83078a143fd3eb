package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/boringdata/boring-ui-controlplane/domain/provisioning"
)

// ProvisioningStore is a sqlx-backed provisioning.Repository. CreateJob
// relies on the partial unique indexes in migration 0001
// (idx_provisioning_jobs_active_per_workspace,
// idx_provisioning_jobs_idempotency) plus ON CONFLICT DO NOTHING: the
// insert and the active-job/idempotency check happen as one atomic
// statement, so concurrent callers never both succeed in inserting for the
// same workspace.
type ProvisioningStore struct {
	db *sqlx.DB
}

// NewProvisioningStore builds a ProvisioningStore over an open *sqlx.DB.
func NewProvisioningStore(db *sqlx.DB) *ProvisioningStore {
	return &ProvisioningStore{db: db}
}

const jobColumns = `id, workspace_id, app_id, environment, state, release_ref, artifact_checksum,
	last_error_code, last_error_detail, idempotency_key, attempt, created_at, updated_at,
	step_started_at, finished_at`

func (s *ProvisioningStore) CreateJob(ctx context.Context, job *provisioning.ProvisioningJob) (*provisioning.ProvisioningJob, bool, error) {
	const insert = `
		INSERT INTO provisioning_jobs
			(id, workspace_id, app_id, environment, state, idempotency_key, attempt,
			 created_at, updated_at, step_started_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		WHERE NOT EXISTS (
			SELECT 1 FROM provisioning_jobs
			WHERE workspace_id = $2 AND state NOT IN ('ready', 'error', 'cancelled')
		)
		AND ($6 = '' OR NOT EXISTS (
			SELECT 1 FROM provisioning_jobs WHERE workspace_id = $2 AND idempotency_key = $6 AND $6 != ''
		))
		ON CONFLICT DO NOTHING`

	res, err := s.db.ExecContext(ctx, insert,
		job.ID, job.WorkspaceID, job.AppID, job.Environment, job.State, job.IdempotencyKey,
		job.Attempt, job.CreatedAt, job.UpdatedAt, job.StepStartedAt)
	if err != nil {
		return nil, false, err
	}

	if n, _ := res.RowsAffected(); n == 1 {
		inserted := *job
		return &inserted, true, nil
	}

	// Someone else holds the active/idempotent slot for this workspace;
	// return whichever job currently represents it.
	var existing *provisioning.ProvisioningJob
	if job.IdempotencyKey != "" {
		existing, err = s.getByIdempotencyKey(ctx, job.WorkspaceID, job.IdempotencyKey)
	}
	if existing == nil {
		existing, err = s.GetActiveJob(ctx, job.WorkspaceID)
	}
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *ProvisioningStore) getByIdempotencyKey(ctx context.Context, workspaceID, key string) (*provisioning.ProvisioningJob, error) {
	var job provisioning.ProvisioningJob
	q := `SELECT ` + jobColumns + ` FROM provisioning_jobs WHERE workspace_id = $1 AND idempotency_key = $2`
	if err := s.db.GetContext(ctx, &job, q, workspaceID, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (s *ProvisioningStore) GetJob(ctx context.Context, id string) (*provisioning.ProvisioningJob, error) {
	var job provisioning.ProvisioningJob
	q := `SELECT ` + jobColumns + ` FROM provisioning_jobs WHERE id = $1`
	if err := s.db.GetContext(ctx, &job, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, provisioning.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (s *ProvisioningStore) GetActiveJob(ctx context.Context, workspaceID string) (*provisioning.ProvisioningJob, error) {
	var job provisioning.ProvisioningJob
	q := `SELECT ` + jobColumns + ` FROM provisioning_jobs
		WHERE workspace_id = $1 AND state NOT IN ('ready', 'error', 'cancelled')`
	if err := s.db.GetContext(ctx, &job, q, workspaceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, provisioning.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (s *ProvisioningStore) UpdateJob(ctx context.Context, job *provisioning.ProvisioningJob) error {
	const q = `
		UPDATE provisioning_jobs SET
			state = $2, release_ref = $3, artifact_checksum = $4, last_error_code = $5,
			last_error_detail = $6, attempt = $7, updated_at = $8, step_started_at = $9,
			finished_at = $10
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, job.ID, job.State, job.ReleaseRef, job.ArtifactChecksum,
		job.LastErrorCode, job.LastErrorDetail, job.Attempt, job.UpdatedAt, job.StepStartedAt, job.FinishedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return provisioning.ErrNotFound
	}
	return nil
}

func (s *ProvisioningStore) ListActiveJobs(ctx context.Context) ([]provisioning.ProvisioningJob, error) {
	var out []provisioning.ProvisioningJob
	q := `SELECT ` + jobColumns + ` FROM provisioning_jobs WHERE state NOT IN ('ready', 'error', 'cancelled')`
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ProvisioningStore) ListJobsByWorkspace(ctx context.Context, workspaceID string) ([]provisioning.ProvisioningJob, error) {
	var out []provisioning.ProvisioningJob
	q := `SELECT ` + jobColumns + ` FROM provisioning_jobs WHERE workspace_id = $1 ORDER BY created_at DESC`
	if err := s.db.SelectContext(ctx, &out, q, workspaceID); err != nil {
		return nil, err
	}
	return out, nil
}
