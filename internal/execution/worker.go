// Package execution runs conversion syncs as River jobs: a periodic job for the
// schedule, and on-demand jobs for async admin triggers.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/affiliateops/backend/internal/models"
)

type SyncConversionsArgs struct {
	// Network restricts the run to one network; empty runs all of them.
	Network string `json:"network,omitempty"`
	Trigger string `json:"trigger"`
}

func (SyncConversionsArgs) Kind() string { return "sync_conversions" }

// Syncer is the orchestrator contract the worker drives.
type Syncer interface {
	SyncAll(ctx context.Context, trigger string) *models.SyncRun
	SyncNetwork(ctx context.Context, network models.NetworkName, trigger string) (*models.SyncRun, error)
}

type SyncConversionsWorker struct {
	river.WorkerDefaults[SyncConversionsArgs]
	syncer  Syncer
	timeout time.Duration
	log     *slog.Logger
}

// DefaultSyncTimeout bounds a whole run; each provider call has its own timeout.
const DefaultSyncTimeout = 30 * time.Minute

func NewSyncConversionsWorker(s Syncer, timeout time.Duration, log *slog.Logger) *SyncConversionsWorker {
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &SyncConversionsWorker{syncer: s, timeout: timeout, log: log}
}

func (w *SyncConversionsWorker) Timeout(*river.Job[SyncConversionsArgs]) time.Duration {
	return w.timeout
}

// Work never fails on provider errors: those are per-network results in the run,
// and the next scheduled run re-polls the same window.
func (w *SyncConversionsWorker) Work(ctx context.Context, job *river.Job[SyncConversionsArgs]) error {
	args := job.Args
	trigger := args.Trigger
	if trigger == "" {
		trigger = models.SyncTriggerSchedule
	}

	var run *models.SyncRun
	if args.Network == "" {
		run = w.syncer.SyncAll(ctx, trigger)
	} else {
		network, ok := models.ParseNetwork(args.Network)
		if !ok {
			return river.JobCancel(fmt.Errorf("unknown network %q", args.Network))
		}
		var err error
		run, err = w.syncer.SyncNetwork(ctx, network, trigger)
		if err != nil {
			return river.JobCancel(err)
		}
	}
	w.log.Info("sync job finished",
		"job_id", job.ID,
		"run_id", run.ID,
		"imported", run.Imported,
		"updated", run.Updated,
		"failed", len(run.Failed()),
	)
	return nil
}

// PeriodicSync schedules a full sync every interval.
func PeriodicSync(interval time.Duration) *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(interval),
		func() (river.JobArgs, *river.InsertOpts) {
			return SyncConversionsArgs{Trigger: models.SyncTriggerSchedule}, nil
		},
		nil,
	)
}
