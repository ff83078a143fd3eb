// sweepctl is an operator CLI for the stale-job sweeper: a one-shot dry-run
// or live sweep, used from the stale-job alert's mandatory actions and the
// on-call handoff runbook in domain/ops without waiting for the next cron
// tick.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/boringdata/boring-ui-controlplane/domain/provisioning"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/config"
	"github.com/boringdata/boring-ui-controlplane/infrastructure/logging"
	"github.com/boringdata/boring-ui-controlplane/storage/memory"
	"github.com/boringdata/boring-ui-controlplane/storage/postgres"
)

func main() {
	detectOnly := flag.Bool("detect-only", false, "report stale jobs without persisting timeout transitions")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New("sweepctl", cfg.Logging.Level, cfg.Logging.Format)

	var repo provisioning.Repository
	if cfg.Database.UseMemoryStore {
		repo = memory.NewProvisioningStore()
	} else {
		db, err := postgres.Connect(cfg.Database)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer db.Close()
		repo = postgres.NewProvisioningStore(db)
	}

	machine := provisioning.NewStateMachine(provisioning.DefaultStepTimeouts(), nil)
	service := provisioning.NewService(repo, machine)
	detector := provisioning.NewStaleJobDetector(service, repo, machine, logger, nil)

	report, err := detector.Sweep(context.Background(), *detectOnly)
	if err != nil {
		log.Fatalf("sweep: %v", err)
	}

	fmt.Printf("stale=%d healthy=%d skipped=%d\n", len(report.Stale), len(report.Healthy), len(report.Skipped))
	for _, id := range report.Stale {
		fmt.Printf("  stale job: %s\n", id)
	}
	if *detectOnly && len(report.Stale) > 0 {
		os.Exit(1)
	}
}
