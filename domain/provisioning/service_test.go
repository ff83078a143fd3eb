package provisioning_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boringdata/boring-ui-controlplane/domain/provisioning"
	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
	"github.com/boringdata/boring-ui-controlplane/storage/memory"
)

func newTestService() *provisioning.Service {
	return provisioning.NewService(memory.NewProvisioningStore(), provisioning.NewStateMachine(nil, nil))
}

func TestCreateJobSingleActiveJobUnderConcurrentCallers(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	const callers = 20
	var wg sync.WaitGroup
	results := make([]*provisioning.ProvisioningJob, callers)
	errs := make([]error, callers)

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			job, err := svc.CreateJob(ctx, "ws-1", "app-1", "prod", "")
			results[i] = job
			errs[i] = err
		}(i)
	}
	wg.Wait()

	var created, conflicts int
	var jobID string
	for i := 0; i < callers; i++ {
		switch {
		case errs[i] == nil:
			created++
			if jobID == "" {
				jobID = results[i].ID
			}
			assert.Equal(t, jobID, results[i].ID, "every non-conflict caller must observe the same job")
		default:
			svcErr, ok := cperrors.As(errs[i])
			require.True(t, ok)
			assert.Equal(t, cperrors.CodeActiveJobConflict, svcErr.Code)
			conflicts++
		}
	}

	assert.Equal(t, 1, created, "exactly one of the racing callers creates the job")
	assert.Equal(t, callers-1, conflicts)

	jobs, err := svc.ListJobs(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, jobs, 1, "the race must persist exactly one job row, not one per caller")
}

func TestCreateJobIdempotencyKeyReturnsSameJobWithoutConflict(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, err := svc.CreateJob(ctx, "ws-1", "app-1", "prod", "idem-key-1")
	require.NoError(t, err)

	second, err := svc.CreateJob(ctx, "ws-1", "app-1", "prod", "idem-key-1")
	require.NoError(t, err, "a repeated idempotency key must not surface active_job_conflict")
	assert.Equal(t, first.ID, second.ID)

	jobs, err := svc.ListJobs(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
}

func TestCreateJobIdempotencyKeyRacingConcurrentCallersConvergeOnOneJob(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	const callers = 20
	var wg sync.WaitGroup
	results := make([]*provisioning.ProvisioningJob, callers)
	errs := make([]error, callers)

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			job, err := svc.CreateJob(ctx, "ws-1", "app-1", "prod", "shared-idem-key")
			results[i] = job
			errs[i] = err
		}(i)
	}
	wg.Wait()

	jobID := ""
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "idempotency-key racers must never see active_job_conflict")
		if jobID == "" {
			jobID = results[i].ID
		}
		assert.Equal(t, jobID, results[i].ID)
	}

	jobs, err := svc.ListJobs(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, jobs, 1, "all idempotency-key racers must converge on exactly one persisted job")
}

func TestCreateJobDifferentWorkspacesDoNotConflict(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.CreateJob(ctx, "ws-1", "app-1", "prod", "")
	require.NoError(t, err)

	_, err = svc.CreateJob(ctx, "ws-2", "app-1", "prod", "")
	require.NoError(t, err, "the single-active-job invariant is scoped per workspace")
}
