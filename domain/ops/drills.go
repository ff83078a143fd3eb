package ops

import "fmt"

// Evidence is a single piece of proof a drill or runbook step requires
// before it can be considered complete.
type Evidence string

// RecoveryConfirmed is the evidence every drill must require: an explicit
// signal that the system returned to a healthy state, not just that the
// failure injection stopped.
const RecoveryConfirmed Evidence = "RECOVERY_CONFIRMED"

// DrillScenario is a validated outage drill: a failure to inject, the
// degradation it's expected to produce, the recovery actions a responder
// takes, and the evidence required to close it out.
type DrillScenario struct {
	Name              string
	FailureInjection  string
	ExpectedDegradation string
	RecoveryActions   []string
	RequiredEvidence  []Evidence
}

// Runbook is a standing operational procedure not tied to a specific drill
// (on-call rotation handoff, recurring credential rotation).
type Runbook struct {
	Name  string
	Steps []string
}

var drills = []DrillScenario{
	{
		Name:             "supabase_auth_outage",
		FailureInjection: "block egress to the IdP's JWKS and token endpoints",
		ExpectedDegradation: "new session callbacks fail with jwks_fetch_error; existing sessions " +
			"keep working until their signed cookie expires or needs rolling refresh",
		RecoveryActions: []string{
			"confirm JWKS endpoint reachability restored",
			"verify a fresh callback issues a session successfully",
			"check auth_callback_latency_p95 returns to baseline",
		},
		RequiredEvidence: []Evidence{RecoveryConfirmed},
	},
	{
		Name:             "sprite_runtime_outage",
		FailureInjection: "stop responding on a workspace's sandbox runtime endpoint",
		ExpectedDegradation: "proxied requests to that workspace return upstream_unavailable; " +
			"other workspaces are unaffected",
		RecoveryActions: []string{
			"confirm the sandbox runtime accepts connections again",
			"issue a proxied request to the affected workspace and confirm 200",
			"confirm stream_limit_exceeded did not spike for unrelated workspaces",
		},
		RequiredEvidence: []Evidence{RecoveryConfirmed},
	},
	{
		Name:             "artifact_corruption",
		FailureInjection: "publish a release bundle whose checksum file doesn't match its contents",
		ExpectedDegradation: "affected provisioning jobs terminate in state=error with " +
			"last_error_code=ARTIFACT_CHECKSUM_MISMATCH; no partially-verified bundle is ever deployed",
		RecoveryActions: []string{
			"halt promotion of the affected release",
			"republish a release with a correct checksum file",
			"retry the failed provisioning jobs from state=error",
			"confirm the retried jobs reach state=ready",
		},
		RequiredEvidence: []Evidence{RecoveryConfirmed},
	},
}

var runbooks = []Runbook{
	{
		Name: "on_call_rotation_handoff",
		Steps: []string{
			"review open Sev-1/Sev-2 alerts and their mandatory-action status",
			"confirm the stale-job sweeper is keeping up (sweepctl -detect-only reports no stale jobs)",
			"hand off any drill evidence still pending RECOVERY_CONFIRMED",
		},
	},
	{
		Name: "upstream_bearer_rotation",
		Steps: []string{
			"generate a new per-app upstream bearer token",
			"update the app's UPSTREAM_BEARER_TOKEN secret and redeploy",
			"confirm proxied requests to the app succeed with the new token",
			"revoke the previous token at the sandbox runtime",
		},
	},
}

func init() {
	for _, d := range drills {
		if len(d.RequiredEvidence) == 0 {
			panic(fmt.Sprintf("ops: drill %q requires no evidence", d.Name))
		}
		found := false
		for _, e := range d.RequiredEvidence {
			if e == RecoveryConfirmed {
				found = true
				break
			}
		}
		if !found {
			panic(fmt.Sprintf("ops: drill %q does not require RECOVERY_CONFIRMED evidence", d.Name))
		}
	}
}

// Drills returns the immutable drill scenario registry.
func Drills() []DrillScenario { return append([]DrillScenario(nil), drills...) }

// Runbooks returns the immutable runbook registry.
func Runbooks() []Runbook { return append([]Runbook(nil), runbooks...) }
