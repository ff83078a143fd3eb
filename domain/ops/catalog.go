// Package ops holds the operational spine's static configuration: the
// alert/SLO catalog and the outage drill/runbook registry. Both tables are
// literal data validated at package-init time so a malformed entry fails
// the build rather than surfacing at 3am (spec.md §4.13).
package ops

import "fmt"

// Severity is an alert's paging severity.
type Severity string

const (
	SeverityInfo Severity = "info"
	SeveritySev2 Severity = "sev2"
	SeveritySev1 Severity = "sev1"
)

// SLO is a single service-level objective the operational spine tracks.
type SLO struct {
	Name            string
	Objective       string
	Window          string
	DashboardPanel  string
}

// AlertDefinition is one alerting rule: a threshold over a window, a
// group-by dimension, and the actions a responder must take at Sev-1.
type AlertDefinition struct {
	Name            string
	Metric          string
	Threshold       string
	Window          string
	GroupBy         string
	Severity        Severity
	Pages           bool
	MandatoryActions []string
	DashboardPanel  string
}

// errorCodeVocabulary is the full set of machine-stable error-group keys the
// provisioning state machine can emit, mirroring
// domain/provisioning.StateMachine.Fail's valid codes (spec.md §7). Kept
// here rather than importing domain/provisioning to avoid a cyclic
// dependency between the state machine and its own alert catalog.
var errorCodeVocabulary = map[string]struct{}{
	"STEP_TIMEOUT":               {},
	"ARTIFACT_CHECKSUM_MISMATCH": {},
	"RELEASE_UNAVAILABLE":        {},
}

var slos = []SLO{
	{
		Name:           "provisioning_success_rate",
		Objective:      "99% of provisioning jobs reach state=ready within 10 minutes of creation",
		Window:         "30d",
		DashboardPanel: "provisioning.success_rate",
	},
	{
		Name:           "proxy_availability",
		Objective:      "99.9% of proxied requests receive a non-5xx response",
		Window:         "30d",
		DashboardPanel: "proxy.availability",
	},
	{
		Name:           "auth_callback_latency",
		Objective:      "p95 auth callback latency under 500ms",
		Window:         "7d",
		DashboardPanel: "auth.callback_latency_p95",
	},
}

var alerts = []AlertDefinition{
	{
		Name:      "provisioning_stale_job_rate",
		Metric:    "provision_jobs_total",
		Threshold: "rate(provision_jobs_total{last_error_code=\"STEP_TIMEOUT\"}[5m]) > 0.1",
		Window:    "5m",
		GroupBy:   "last_error_code",
		Severity:  SeveritySev2,
		Pages:     true,
		MandatoryActions: []string{
			"run sweepctl -detect-only to confirm scope",
			"page provisioning on-call if stale count exceeds 10 workspaces",
		},
		DashboardPanel: "provisioning.stale_jobs",
	},
	{
		Name:      "artifact_checksum_mismatch_spike",
		Metric:    "provision_jobs_total",
		Threshold: "increase(provision_jobs_total{last_error_code=\"ARTIFACT_CHECKSUM_MISMATCH\"}[15m]) > 3",
		Window:    "15m",
		GroupBy:   "last_error_code",
		Severity:  SeveritySev1,
		Pages:     true,
		MandatoryActions: []string{
			"halt release promotion for the affected app",
			"run the artifact corruption drill's recovery actions",
			"require RECOVERY_CONFIRMED evidence before closing",
		},
		DashboardPanel: "provisioning.checksum_mismatches",
	},
	{
		Name:      "tenant_boundary_incidents",
		Metric:    "tenant_boundary_incidents",
		Threshold: "increase(tenant_boundary_incidents[5m]) > 0",
		Window:    "5m",
		GroupBy:   "workspace_id",
		Severity:  SeveritySev1,
		Pages:     true,
		MandatoryActions: []string{
			"page security on-call immediately",
			"freeze the offending session/token",
			"require RECOVERY_CONFIRMED evidence before closing",
		},
		DashboardPanel: "security.tenant_boundary_incidents",
	},
	{
		Name:      "stream_limit_exceeded_rate",
		Metric:    "requests_total",
		Threshold: "rate(requests_total{error_code=\"stream_limit_exceeded\"}[5m]) > 0.05",
		Window:    "5m",
		GroupBy:   "workspace_id",
		Severity:  SeverityInfo,
		Pages:     false,
		DashboardPanel: "proxy.stream_limit_exceeded",
	},
	{
		Name:      "jwks_fetch_error_rate",
		Metric:    "requests_total",
		Threshold: "rate(requests_total{error_code=\"jwks_fetch_error\"}[5m]) > 0.01",
		Window:    "5m",
		GroupBy:   "error_code",
		Severity:  SeveritySev2,
		Pages:     true,
		MandatoryActions: []string{
			"check IdP JWKS endpoint health",
			"run the Supabase-auth outage drill if the endpoint is down",
		},
		DashboardPanel: "auth.jwks_fetch_errors",
	},
}

func init() {
	for _, a := range alerts {
		if a.GroupBy == "last_error_code" {
			if _, ok := errorCodeVocabulary[extractGroupKeyValue(a.Threshold)]; !ok {
				panic(fmt.Sprintf("ops: alert %q groups by last_error_code with an unrecognized code", a.Name))
			}
		}
		if a.Severity == SeveritySev1 && len(a.MandatoryActions) == 0 {
			panic(fmt.Sprintf("ops: sev1 alert %q declares no mandatory actions", a.Name))
		}
	}
}

// extractGroupKeyValue pulls the quoted error-code literal out of a
// threshold expression of the form metric{last_error_code="code"}[...], the
// only shape this catalog's thresholds use for that group key.
func extractGroupKeyValue(threshold string) string {
	const marker = `last_error_code="`
	start := indexOf(threshold, marker)
	if start < 0 {
		return ""
	}
	start += len(marker)
	end := indexOf(threshold[start:], `"`)
	if end < 0 {
		return ""
	}
	return threshold[start : start+end]
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// SLOs returns the immutable SLO catalog.
func SLOs() []SLO { return append([]SLO(nil), slos...) }

// Alerts returns the immutable alert catalog.
func Alerts() []AlertDefinition { return append([]AlertDefinition(nil), alerts...) }
