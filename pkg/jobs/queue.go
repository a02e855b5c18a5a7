package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of background work. ID doubles as the cancellation handle.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Enqueued time.Time
}

// Handler processes a job. Its context ends when the queue stops or the job
// is cancelled.
type Handler func(context.Context, Job) error

// QueueConfig configures the worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	Logger     *zap.Logger
}

// Queue dispatches jobs to a fixed pool of goroutines. Jobs run at most once;
// a failed job is logged and dropped, leaving outcome reporting to the
// handler. Jobs can be cancelled individually, whether running or waiting.
type Queue struct {
	name    string
	handler Handler
	workers int
	logger  *zap.Logger

	jobs chan Job
	wg   sync.WaitGroup

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	running map[string]context.CancelFunc
	dropped map[string]struct{}
}

// NewQueue builds a queue; call Start before Enqueue.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		workers: cfg.Workers,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
		running: map[string]context.CancelFunc{},
		dropped: map[string]struct{}{},
	}
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop cancels every running job and waits for the workers to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue adds a job, blocking while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	ctx, started := q.ctx, q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("queue %s stopped: %w", q.name, err)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

// Cancel stops the job with the given id. A running job has its context
// cancelled; a job still waiting in the buffer is dropped when dequeued.
// It reports whether the job was running.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if cancel, ok := q.running[id]; ok {
		cancel()
		return true
	}
	q.dropped[id] = struct{}{}
	return false
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.run(workerID, job)
		}
	}
}

func (q *Queue) run(workerID int, job Job) {
	logger := q.logger.With(zap.String("job_id", job.ID), zap.String("type", job.Type))

	q.mu.Lock()
	if _, ok := q.dropped[job.ID]; ok {
		delete(q.dropped, job.ID)
		q.mu.Unlock()
		logger.Info("job cancelled before start")
		return
	}
	ctx, cancel := context.WithCancel(q.ctx)
	q.running[job.ID] = cancel
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		delete(q.running, job.ID)
		q.mu.Unlock()
		cancel()
	}()

	logger.Debug("job started", zap.Int("worker", workerID), zap.Duration("waited", time.Since(job.Enqueued)))
	if err := q.handler(ctx, job); err != nil {
		logger.Warn("job failed", zap.Error(err))
	}
}
