package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/garnizeh/companies/internal/models"
	"github.com/garnizeh/companies/pkg/logging"
	"github.com/garnizeh/companies/pkg/repository"
)

const (
	idlePoll  = 500 * time.Millisecond
	errorPoll = 1 * time.Second
)

type WorkerPool struct {
	repo         repository.JobQueue
	handlers     map[string]Handler
	logger       *logging.Logger
	workerCount  int
	onDeadLetter func(ctx context.Context, job *models.BackgroundJob)
	stop         chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

func NewWorkerPool(repo repository.JobQueue, handlers map[string]Handler, logger *logging.Logger, workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 4
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &WorkerPool{repo: repo, handlers: handlers, logger: logger, workerCount: workerCount, stop: make(chan struct{})}
}

// OnDeadLetter registers fn to run after a job was moved to the dead-letter
// table. Set it before Start.
func (p *WorkerPool) OnDeadLetter(fn func(ctx context.Context, job *models.BackgroundJob)) {
	p.onDeadLetter = fn
}

// Start launches the worker goroutines
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for them. It is safe to call more than once.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			p.logger.Debug("worker stopping", "id", id)
			return
		case <-ctx.Done():
			p.logger.Debug("context canceled, worker exiting", "id", id)
			return
		default:
		}

		job, err := p.repo.FetchNext(ctx)
		if err != nil {
			p.logger.Error("fetch job", "err", err)
			p.wait(ctx, errorPoll)
			continue
		}
		if job == nil {
			p.wait(ctx, idlePoll)
			continue
		}

		p.run(ctx, job)
	}
}

// run executes a claimed job. Bookkeeping uses a context detached from ctx so
// the outcome is stored even while the pool is shutting down.
func (p *WorkerPool) run(ctx context.Context, job *models.BackgroundJob) {
	store := context.WithoutCancel(ctx)

	h, ok := p.handlers[job.Type]
	if !ok {
		job.Status = StatusFailed
		job.LastError = "no handler"
		p.deadLetter(store, job)
		return
	}

	err := p.call(ctx, h, job)
	if err == nil {
		job.Status = StatusDone
		if upErr := p.repo.UpdateJob(store, job); upErr != nil {
			p.logger.Error("mark job done", "job", job.ID, "err", upErr)
		}
		return
	}

	// interrupted, not failed: back to the queue without spending an attempt
	if ctx.Err() != nil {
		job.Status = StatusQueued
		job.LastError = err.Error()
		job.NextTryAt = nil
		p.logger.Info("job interrupted, requeued", "job", job.ID, "type", job.Type)
		if upErr := p.repo.UpdateJob(store, job); upErr != nil {
			p.logger.Error("requeue interrupted job", "job", job.ID, "err", upErr)
		}
		return
	}

	job.Attempts++
	job.LastError = err.Error()
	if job.Attempts >= job.MaxAttempts {
		job.Status = StatusFailed
		p.logger.Warn("job exhausted retries", "job", job.ID, "type", job.Type, "attempts", job.Attempts, "err", err)
		p.deadLetter(store, job)
		return
	}

	t := time.Now().Add(BackoffDuration(job.Attempts))
	job.NextTryAt = &t
	job.Status = StatusRetry
	p.logger.Info("job scheduled for retry", "job", job.ID, "type", job.Type, "attempt", job.Attempts, "next_try_at", t)
	if upErr := p.repo.UpdateJob(store, job); upErr != nil {
		p.logger.Error("update job for retry", "job", job.ID, "err", upErr)
	}
}

func (p *WorkerPool) deadLetter(ctx context.Context, job *models.BackgroundJob) {
	if err := p.repo.MoveToDeadLetter(ctx, job); err != nil {
		p.logger.Error("move to dead letter", "job", job.ID, "err", err)
		return
	}
	if p.onDeadLetter != nil {
		p.onDeadLetter(ctx, job)
	}
}

// call runs h and turns a panic into an error so one bad job cannot stop the worker.
func (p *WorkerPool) call(ctx context.Context, h Handler, job *models.BackgroundJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}

func (p *WorkerPool) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-p.stop:
	case <-ctx.Done():
	}
}

// Enqueue convenience helper that creates a job and persists it
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	return Enqueue(ctx, p.repo, typ, payload, priority, maxAttempts)
}

// Enqueue persists a job on q without needing a running pool.
func Enqueue(ctx context.Context, q repository.JobQueue, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	j := &models.BackgroundJob{Type: typ, Payload: b, Priority: priority, MaxAttempts: maxAttempts, ScheduledAt: time.Now()}
	return q.Enqueue(ctx, j)
}
