// Package reconcile replays matching-service calls that failed on the request
// path. A cron sweep turns pending sync-ledger entries into background jobs and
// a worker pool executes them with retries.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/garnizeh/companies/internal/config"
	"github.com/garnizeh/companies/internal/jobs"
	"github.com/garnizeh/companies/internal/models"
	"github.com/garnizeh/companies/pkg/logging"
	"github.com/garnizeh/companies/pkg/repository"
)

const (
	JobPush   = "matching.push"
	JobRemove = "matching.remove"

	sweepBatch = 100
)

// Replayer re-sends one remote operation for a job description.
type Replayer interface {
	Replay(ctx context.Context, id string, op models.SyncOp) error
}

type payload struct {
	ID string `json:"id"`
}

type Reconciler struct {
	cron        *cron.Cron
	spec        string
	maxAttempts int
	ledger      repository.SyncLedgerRepo
	queue       repository.JobQueue
	replayer    Replayer
	pool        *jobs.WorkerPool
	logger      *logging.Logger
}

func New(cfg config.ReconcileConfig, ledger repository.SyncLedgerRepo, queue repository.JobQueue, replayer Replayer, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	spec := cfg.Schedule
	if spec == "" {
		spec = "@every 5m"
	}

	r := &Reconciler{
		cron:        cron.New(cron.WithLogger(cron.PrintfLogger(logger)), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		spec:        spec,
		maxAttempts: cfg.MaxAttempts,
		ledger:      ledger,
		queue:       queue,
		replayer:    replayer,
		logger:      logger,
	}
	r.pool = jobs.NewWorkerPool(queue, r.Handlers(), logger, cfg.Workers)
	r.pool.OnDeadLetter(r.release)
	return r
}

// Handlers maps the reconcile job types to their replay functions.
func (r *Reconciler) Handlers() map[string]jobs.Handler {
	return map[string]jobs.Handler{
		JobPush:   r.handle(models.SyncOpPush),
		JobRemove: r.handle(models.SyncOpRemove),
	}
}

func (r *Reconciler) handle(op models.SyncOp) jobs.Handler {
	return func(ctx context.Context, j *models.BackgroundJob) error {
		var p payload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		if p.ID == "" {
			return fmt.Errorf("payload has no job description id")
		}
		return r.replayer.Replay(ctx, p.ID, op)
	}
}

// Start registers the sweep, requeues jobs a previous run left behind, starts
// the scheduler and the workers, and runs one sweep right away.
func (r *Reconciler) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.spec, func() { r.sweepAndLog(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	n, err := r.queue.RequeueRunning(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		r.logger.Info("requeued interrupted jobs", "count", n)
	}

	r.pool.Start(ctx)
	r.cron.Start()
	r.logger.Info("reconciler started", "schedule", r.spec)

	r.sweepAndLog(ctx)
	return nil
}

// Stop waits for a running sweep and for the workers to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
	r.pool.Stop()
	r.logger.Info("reconciler stopped")
}

// Sweep enqueues one job per pending ledger entry and marks it queued. It
// returns how many jobs were enqueued.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	pending, err := r.ledger.ListUnqueued(ctx, sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}

	n := 0
	for _, p := range pending {
		typ := JobPush
		if p.Op == models.SyncOpRemove {
			typ = JobRemove
		}

		if _, err := jobs.Enqueue(ctx, r.queue, typ, payload{ID: p.JobDescriptionID}, 10, r.maxAttempts); err != nil {
			return n, fmt.Errorf("enqueue %s for %s: %w", typ, p.JobDescriptionID, err)
		}
		if err := r.ledger.MarkQueued(ctx, p.JobDescriptionID); err != nil {
			return n, fmt.Errorf("mark queued %s: %w", p.JobDescriptionID, err)
		}
		n++
	}

	return n, nil
}

// release hands a dead-lettered entry back to the sweep, so the divergence is
// retried on a later schedule instead of staying pending forever.
func (r *Reconciler) release(ctx context.Context, j *models.BackgroundJob) {
	var p payload
	if err := json.Unmarshal(j.Payload, &p); err != nil || p.ID == "" {
		r.logger.Error("dead letter without job description id", "job", j.ID, "err", err)
		return
	}
	if err := r.ledger.ReleaseQueued(ctx, p.ID); err != nil {
		r.logger.Error("release ledger entry", "id", p.ID, "err", err)
		return
	}
	r.logger.Warn("replay dead-lettered, entry released for the next sweep", "id", p.ID, "type", j.Type, "err", j.LastError)
}

func (r *Reconciler) sweepAndLog(ctx context.Context) {
	n, err := r.Sweep(ctx)
	if err != nil {
		r.logger.Error("reconcile sweep", "enqueued", n, "err", err)
		return
	}
	if n > 0 {
		r.logger.Info("reconcile sweep", "enqueued", n)
	}
}
