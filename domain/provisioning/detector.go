package provisioning

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/metrics"
)

// SweepReport categorizes every active job the detector scanned.
type SweepReport struct {
	Stale   []string
	Healthy []string
	Skipped []string
}

// StaleJobDetector periodically scans every active provisioning job and
// applies the step-timeout transition to any that have overstayed their
// current state (spec.md §4.6).
type StaleJobDetector struct {
	service *Service
	repo    Repository
	machine *StateMachine
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewStaleJobDetector builds a StaleJobDetector.
func NewStaleJobDetector(service *Service, repo Repository, machine *StateMachine, logger *logging.Logger, m *metrics.Metrics) *StaleJobDetector {
	return &StaleJobDetector{service: service, repo: repo, machine: machine, logger: logger, metrics: m}
}

// Sweep scans every active job once. In detectOnly mode no transitions are
// persisted; the report still reflects which jobs would be marked stale.
func (d *StaleJobDetector) Sweep(ctx context.Context, detectOnly bool) (*SweepReport, error) {
	jobs, err := d.repo.ListActiveJobs(ctx)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{}
	for i := range jobs {
		job := &jobs[i]
		if job.State.IsTerminal() {
			report.Skipped = append(report.Skipped, job.ID)
			continue
		}

		stale := d.machine.CheckTimeout(job)
		if !stale {
			report.Healthy = append(report.Healthy, job.ID)
			continue
		}

		report.Stale = append(report.Stale, job.ID)
		if detectOnly {
			continue
		}
		if err := d.repo.UpdateJob(ctx, job); err != nil {
			if d.logger != nil {
				d.logger.LogError(ctx, "stale job sweep: failed to persist timeout transition", err, map[string]interface{}{"job_id": job.ID})
			}
			continue
		}
		if d.metrics != nil {
			d.metrics.RecordProvisionJob(string(job.State), job.LastErrorCode)
		}
	}

	return report, nil
}

// StartCron schedules recurring sweeps on schedule (standard 5-field cron
// syntax) until the returned stop function is called.
func (d *StaleJobDetector) StartCron(schedule string) (stop func(), err error) {
	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		ctx := context.Background()
		report, err := d.Sweep(ctx, false)
		if err != nil {
			if d.logger != nil {
				d.logger.LogError(ctx, "stale job sweep failed", err, nil)
			}
			return
		}
		if d.logger != nil && len(report.Stale) > 0 {
			d.logger.WithFields(map[string]interface{}{
				"stale": len(report.Stale), "healthy": len(report.Healthy),
			}).Info("stale job sweep completed")
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
