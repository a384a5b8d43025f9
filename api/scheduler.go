/*
scheduler.go - Scheduled balance reconciliation

PURPOSE:
  Periodically recomputes every account balance from its transactions
  and reports drift. With repair enabled the drift is written back
  through the ledger Writer, which keeps the audit trail intact.

DESIGN:
  - robfig/cron drives the schedule (standard 5-field spec, e.g. "0 3 * * *")
  - Panics inside a run are recovered and logged by the cron chain
  - A run that finds drift logs one warning per account; the lifecycle
    service also publishes an "account.drift" event for each
  - Runs never overlap: SkipIfStillRunning drops a tick while the
    previous run is still busy

CONFIGURATION:
  - RECONCILE_SCHEDULE: cron spec; empty disables the scheduler
  - RECONCILE_REPAIR:   apply the drift instead of only reporting it

USAGE:
  scheduler := NewReconciliationScheduler(svc, logger, "0 3 * * *", false)
  if err := scheduler.Start(); err != nil { ... }
  // ... later
  <-scheduler.Stop().Done()

SEE ALSO:
  - handlers.go: ReconcileAccount / ReconcileAll (manual reconciliation)
  - ledger/reconcile.go: Reconciler
  - cmd/ledgerctl: One-off reconciliation from the command line
*/
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/ledger"
	"github.com/LeatherFire/Muhasebe-Y-netim-Sistemi/lifecycle"
)

// SchedulerActor is the identity recorded in the audit log for scheduled runs.
var SchedulerActor = ledger.Actor{ID: "system:reconciler", IsAdmin: true}

// ReconciliationScheduler runs ReconcileAll on a cron schedule.
type ReconciliationScheduler struct {
	Service  *lifecycle.Service
	Schedule string
	Repair   bool

	logger *slog.Logger
	cron   *cron.Cron
	entry  cron.EntryID
}

// NewReconciliationScheduler creates a new scheduler.
func NewReconciliationScheduler(svc *lifecycle.Service, logger *slog.Logger, schedule string, repair bool) *ReconciliationScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reconcile-scheduler")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	return &ReconciliationScheduler{
		Service:  svc,
		Schedule: schedule,
		Repair:   repair,
		logger:   logger,
		cron:     c,
	}
}

// Start registers the job and starts the cron scheduler. An empty
// schedule leaves the scheduler disabled.
func (rs *ReconciliationScheduler) Start() error {
	if rs.Schedule == "" {
		rs.logger.Info("scheduler disabled, not starting")
		return nil
	}

	id, err := rs.cron.AddFunc(rs.Schedule, func() {
		if _, err := rs.RunNow(context.Background()); err != nil {
			rs.logger.Error("scheduled reconciliation failed", "error", err)
		}
	})
	if err != nil {
		rs.logger.Error("failed to schedule reconciliation job", "schedule", rs.Schedule, "error", err)
		return err
	}
	rs.entry = id
	rs.cron.Start()
	rs.logger.Info("scheduled reconciliation job", "schedule", rs.Schedule, "repair", rs.Repair)
	return nil
}

// Stop stops the scheduler. The returned context is done once a running
// job has finished.
func (rs *ReconciliationScheduler) Stop() context.Context {
	return rs.cron.Stop()
}

// RunNow reconciles every account immediately.
func (rs *ReconciliationScheduler) RunNow(ctx context.Context) ([]ledger.Drift, error) {
	start := time.Now()
	drifts, err := rs.Service.ReconcileAll(ctx, SchedulerActor, rs.Repair)
	if err != nil {
		return nil, err
	}

	inconsistent := 0
	for _, d := range drifts {
		if d.Consistent() {
			continue
		}
		inconsistent++
		rs.logger.Warn("balance drift detected",
			"account_id", d.AccountID,
			"stored", d.Stored.StringFixed(2),
			"calculated", d.Calculated.StringFixed(2),
			"drift", d.Drift.StringFixed(2),
			"repaired", d.Repaired)
	}
	rs.logger.Info("reconciliation completed",
		"accounts", len(drifts),
		"inconsistent", inconsistent,
		"duration", time.Since(start))
	return drifts, nil
}

// NextRun returns when the next scheduled run will occur, or the zero
// time when the scheduler is not running.
func (rs *ReconciliationScheduler) NextRun() time.Time {
	if rs.entry == 0 {
		return time.Time{}
	}
	return rs.cron.Entry(rs.entry).Next
}
