package provisioning

import (
	"fmt"
	"time"

	cperrors "github.com/boringdata/boring-ui-controlplane/infrastructure/errors"
)

// StepTimeouts maps each active state to its maximum dwell time before the
// job is failed with STEP_TIMEOUT (spec.md §4.5). Defaults cover every
// active state; callers may override individual entries.
type StepTimeouts map[State]time.Duration

// DefaultStepTimeouts returns the built-in timeout table.
func DefaultStepTimeouts() StepTimeouts {
	return StepTimeouts{
		StateQueued:            30 * time.Second,
		StateResolvingRelease:  30 * time.Second,
		StateCreatingSandbox:   60 * time.Second,
		StateUploadingArtifact: 120 * time.Second,
		StateVerifyingChecksum: 30 * time.Second,
		StateStartingRuntime:   60 * time.Second,
	}
}

// StateMachine applies legal transitions to a ProvisioningJob in place. It
// holds no state of its own; every call takes the job as an argument so
// the caller controls persistence.
type StateMachine struct {
	timeouts StepTimeouts
	now      func() time.Time
}

// NewStateMachine builds a StateMachine. now defaults to time.Now; tests
// may override it for deterministic timeout checks.
func NewStateMachine(timeouts StepTimeouts, now func() time.Time) *StateMachine {
	if timeouts == nil {
		timeouts = DefaultStepTimeouts()
	}
	if now == nil {
		now = time.Now
	}
	return &StateMachine{timeouts: timeouts, now: now}
}

// nextOf returns the state that immediately follows s in the canonical
// forward sequence, or "" if s is not a non-terminal forward state.
func nextOf(s State) State {
	for i, st := range forwardSequence {
		if st == s && i+1 < len(forwardSequence) {
			return forwardSequence[i+1]
		}
	}
	return ""
}

// Advance transitions job to the next state in the forward sequence. It
// rejects an advance attempted from a terminal state.
func (m *StateMachine) Advance(job *ProvisioningJob) error {
	if job.State.IsTerminal() {
		return fmt.Errorf("provisioning: cannot advance terminal state %s", job.State)
	}
	next := nextOf(job.State)
	if next == "" {
		return fmt.Errorf("provisioning: no forward transition from %s", job.State)
	}
	m.enter(job, next)
	return nil
}

// Fail transitions job to StateError with the given machine-stable code
// and human-readable detail.
func (m *StateMachine) Fail(job *ProvisioningJob, code, detail string) {
	job.LastErrorCode = code
	job.LastErrorDetail = detail
	m.enter(job, StateError)
	now := m.now()
	job.FinishedAt = &now
}

// Cancel transitions job to StateCancelled.
func (m *StateMachine) Cancel(job *ProvisioningJob) {
	m.enter(job, StateCancelled)
	now := m.now()
	job.FinishedAt = &now
}

// RetryFromError restarts a terminal-error job in a fresh active state,
// incrementing attempt and clearing error fields. It is the machine's only
// legal transition out of StateError.
func (m *StateMachine) RetryFromError(job *ProvisioningJob) error {
	if job.State != StateError {
		return cperrors.New("invalid_transition", "retry_from_error is only legal from the error state", 409)
	}
	job.Attempt++
	job.LastErrorCode = ""
	job.LastErrorDetail = ""
	job.FinishedAt = nil
	m.enter(job, StateQueued)
	return nil
}

// CheckTimeout reports whether job has overstayed its current state's
// timeout and, if so, applies the StepTimeout failure transition.
func (m *StateMachine) CheckTimeout(job *ProvisioningJob) bool {
	if job.State.IsTerminal() {
		return false
	}
	limit, ok := m.timeouts[job.State]
	if !ok {
		return false
	}
	elapsed := job.ElapsedInStep(m.now())
	if elapsed <= limit {
		return false
	}
	m.Fail(job, string(cperrors.CodeStepTimeout), fmt.Sprintf("state=%s elapsed=%s", job.State, elapsed))
	return true
}

func (m *StateMachine) enter(job *ProvisioningJob, state State) {
	job.State = state
	job.StepStartedAt = m.now()
	job.UpdatedAt = job.StepStartedAt
}
