// Package jobs is the sync orchestrator: it runs every provider adapter over the
// trailing window, isolates per-network failures, and records each run.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/affiliateops/backend/internal/alerts"
	"github.com/affiliateops/backend/internal/execution"
	"github.com/affiliateops/backend/internal/ingest"
	"github.com/affiliateops/backend/internal/ledger"
	"github.com/affiliateops/backend/internal/models"
	"github.com/affiliateops/backend/internal/providers"
)

// ErrUnknownNetwork is returned by SyncNetwork for a network with no adapter.
var ErrUnknownNetwork = errors.New("no adapter for network")

const (
	DefaultConcurrency = 2
	defaultRunsLimit   = 20
)

// Applier applies one event to the ledger. *ingest.Pipeline implements it.
type Applier interface {
	Apply(ctx context.Context, ev models.ConversionEvent) (ingest.Outcome, error)
}

type RunStore interface {
	Save(ctx context.Context, run *models.SyncRun) error
	ListRecent(ctx context.Context, limit int) ([]*models.SyncRun, error)
}

type Service interface {
	SyncAll(ctx context.Context, trigger string) *models.SyncRun
	SyncNetwork(ctx context.Context, network models.NetworkName, trigger string) (*models.SyncRun, error)
	ListRuns(ctx context.Context, limit int) ([]*models.SyncRun, error)
}

type Config struct {
	WindowDays  int
	Concurrency int
}

type service struct {
	adapters    []providers.Adapter
	applier     Applier
	runs        RunStore
	alerts      alerts.Notifier
	windowDays  int
	concurrency int
	log         *slog.Logger
}

// NewService returns the orchestrator. Adapters run in the given order; results
// keep that order. runs and notifier may be nil.
func NewService(adapters []providers.Adapter, applier Applier, runs RunStore, notifier alerts.Notifier, cfg Config, log *slog.Logger) *service {
	if notifier == nil {
		notifier = alerts.Noop{}
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = providers.DefaultWindowDays
	}
	return &service{
		adapters:    adapters,
		applier:     applier,
		runs:        runs,
		alerts:      notifier,
		windowDays:  cfg.WindowDays,
		concurrency: cfg.Concurrency,
		log:         log,
	}
}

var (
	_ Service          = (*service)(nil)
	_ execution.Syncer = (*service)(nil)
)

// now is swapped in tests.
var now = time.Now

func (s *service) SyncAll(ctx context.Context, trigger string) *models.SyncRun {
	return s.run(ctx, trigger, s.adapters)
}

func (s *service) SyncNetwork(ctx context.Context, network models.NetworkName, trigger string) (*models.SyncRun, error) {
	for _, a := range s.adapters {
		if a.Network() == network {
			return s.run(ctx, trigger, []providers.Adapter{a}), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, network)
}

func (s *service) ListRuns(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	if s.runs == nil {
		return []*models.SyncRun{}, nil
	}
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	return s.runs.ListRecent(ctx, limit)
}

func (s *service) run(ctx context.Context, trigger string, adapters []providers.Adapter) *models.SyncRun {
	run := &models.SyncRun{
		ID:        uuid.New(),
		Trigger:   trigger,
		StartedAt: now().UTC(),
		Results:   make([]models.ProviderResult, len(adapters)),
	}
	window := providers.TrailingWindow(run.StartedAt, s.windowDays)
	log := s.log.With("run_id", run.ID, "trigger", trigger)
	log.Info("sync run started", "networks", len(adapters), "window_start", window.Start, "window_end", window.End)

	// Workers never return errors, so Wait only waits; failures land in Results.
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, a := range adapters {
		g.Go(func() error {
			run.Results[i] = s.syncOne(ctx, a, window, log)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range run.Results {
		run.Imported += res.Imported
		run.Updated += res.Updated
	}
	run.FinishedAt = now().UTC()
	log.Info("sync run finished",
		"imported", run.Imported,
		"updated", run.Updated,
		"failed", len(run.Failed()),
		"duration", run.FinishedAt.Sub(run.StartedAt),
	)

	// Persisting and alerting use a detached context so a cancelled trigger
	// still leaves a record of what ran.
	bg := context.WithoutCancel(ctx)
	if s.runs != nil {
		if err := s.runs.Save(bg, run); err != nil {
			log.Error("save sync run failed", "error", err)
		}
	}
	if text := alerts.SyncFailures(run); text != "" {
		if err := s.alerts.Notify(bg, text); err != nil {
			log.Warn("sync failure alert not sent", "error", err)
		}
	}
	return run
}

// syncOne walks one network through NotConfigured | Running -> Succeeded | Failed.
func (s *service) syncOne(ctx context.Context, a providers.Adapter, window providers.Window, log *slog.Logger) (res models.ProviderResult) {
	network := a.Network()
	res = models.ProviderResult{Network: network, State: models.SyncStateRunning, StartedAt: now().UTC()}
	log = log.With("network", network)
	defer func() {
		if p := recover(); p != nil {
			res.State = models.SyncStateFailed
			res.Error = fmt.Sprintf("adapter panic: %v", p)
			log.Error("adapter panicked", "panic", p)
		}
		res.FinishedAt = now().UTC()
	}()

	evs, err := a.Sync(ctx, window)
	if errors.Is(err, providers.ErrCredentialsMissing) {
		log.Info("network not configured", "error", err)
		res.State = models.SyncStateNotConfigured
		return res
	}
	if err != nil {
		log.Error("network sync failed", "error", err)
		res.State = models.SyncStateFailed
		res.Error = err.Error()
		return res
	}

	for _, ev := range evs {
		out, err := s.applier.Apply(ctx, ev)
		var verr *ledger.ValidationError
		if errors.As(err, &verr) {
			res.Skipped++
			log.Warn("skipping invalid event", "transaction_id", ev.NetworkTransactionID, "error", err)
			continue
		}
		if err != nil {
			// Storage failures end this network's run; the next run re-polls the window.
			log.Error("ledger write failed", "transaction_id", ev.NetworkTransactionID, "error", err)
			res.State = models.SyncStateFailed
			res.Error = err.Error()
			return res
		}
		if out.Created {
			res.Imported++
		} else {
			res.Updated++
		}
	}
	res.State = models.SyncStateSucceeded
	log.Info("network synced", "events", len(evs), "imported", res.Imported, "updated", res.Updated, "skipped", res.Skipped)
	return res
}
