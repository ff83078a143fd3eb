package provisioning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob(state State, stepStartedAt time.Time) *ProvisioningJob {
	return &ProvisioningJob{
		ID:            "job-1",
		WorkspaceID:   "ws-1",
		State:         state,
		StepStartedAt: stepStartedAt,
		UpdatedAt:     stepStartedAt,
	}
}

func TestStateMachineAdvanceWalksForwardSequence(t *testing.T) {
	now := time.Now()
	m := NewStateMachine(DefaultStepTimeouts(), func() time.Time { return now })
	job := newTestJob(StateQueued, now)

	for _, want := range []State{
		StateResolvingRelease, StateCreatingSandbox, StateUploadingArtifact,
		StateVerifyingChecksum, StateStartingRuntime, StateReady,
	} {
		require.NoError(t, m.Advance(job))
		assert.Equal(t, want, job.State)
	}

	assert.Error(t, m.Advance(job), "advancing a terminal state must fail")
}

func TestStateMachineRetryFromErrorOnlyLegalFromError(t *testing.T) {
	now := time.Now()
	m := NewStateMachine(DefaultStepTimeouts(), func() time.Time { return now })

	queued := newTestJob(StateQueued, now)
	err := m.RetryFromError(queued)
	require.Error(t, err, "retry_from_error must be rejected outside StateError")

	job := newTestJob(StateError, now)
	job.LastErrorCode = "STEP_TIMEOUT"
	job.Attempt = 1
	require.NoError(t, m.RetryFromError(job))
	assert.Equal(t, StateQueued, job.State)
	assert.Equal(t, 2, job.Attempt)
	assert.Empty(t, job.LastErrorCode)
}

func TestStateMachineCheckTimeout(t *testing.T) {
	started := time.Now()
	elapsed := started.Add(45 * time.Second)
	m := NewStateMachine(DefaultStepTimeouts(), func() time.Time { return elapsed })

	job := newTestJob(StateQueued, started)
	stale := m.CheckTimeout(job)

	assert.True(t, stale, "queued has a 30s timeout, 45s elapsed must be stale")
	assert.Equal(t, StateError, job.State)
	assert.Equal(t, "STEP_TIMEOUT", job.LastErrorCode)
}

func TestStateMachineCheckTimeoutHealthyWithinBudget(t *testing.T) {
	started := time.Now()
	elapsed := started.Add(5 * time.Second)
	m := NewStateMachine(DefaultStepTimeouts(), func() time.Time { return elapsed })

	job := newTestJob(StateQueued, started)
	stale := m.CheckTimeout(job)

	assert.False(t, stale)
	assert.Equal(t, StateQueued, job.State)
}

func TestStateMachineCheckTimeoutSkipsTerminalStates(t *testing.T) {
	started := time.Now()
	m := NewStateMachine(DefaultStepTimeouts(), func() time.Time { return started.Add(time.Hour) })

	job := newTestJob(StateReady, started)
	assert.False(t, m.CheckTimeout(job))
}
