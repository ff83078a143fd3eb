package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSLOsAndAlertsAreDefensiveCopies(t *testing.T) {
	got := SLOs()
	originalCount := len(got)
	got[0].Name = "mutated"
	assert.NotEqual(t, "mutated", SLOs()[0].Name)
	assert.Len(t, SLOs(), originalCount)

	alerts := Alerts()
	alerts[0].Name = "mutated"
	assert.NotEqual(t, "mutated", Alerts()[0].Name)
}

func TestEverySev1AlertHasMandatoryActions(t *testing.T) {
	for _, a := range Alerts() {
		if a.Severity == SeveritySev1 {
			assert.NotEmpty(t, a.MandatoryActions, "sev1 alert %q must declare mandatory actions", a.Name)
		}
	}
}

func TestExtractGroupKeyValue(t *testing.T) {
	got := extractGroupKeyValue(`rate(provision_jobs_total{last_error_code="step_timeout"}[5m]) > 0.1`)
	assert.Equal(t, "step_timeout", got)

	assert.Equal(t, "", extractGroupKeyValue("no marker here"))
}

func TestDrillsRequireRecoveryConfirmedEvidence(t *testing.T) {
	for _, d := range Drills() {
		assert.Contains(t, d.RequiredEvidence, RecoveryConfirmed, "drill %q must require RECOVERY_CONFIRMED evidence", d.Name)
	}
}
