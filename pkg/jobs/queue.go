package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of queued work.
type Job[T any] struct {
	ID       string
	Kind     string
	Payload  T
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job. A returned error triggers a retry.
type Handler[T any] func(context.Context, Job[T]) error

// DropFunc observes jobs that exhausted their retries.
type DropFunc[T any] func(Job[T], error)

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is an in-memory worker pool. Jobs are retried in the worker that
// picked them up, so Stop only returns once every accepted job finished.
type Queue[T any] struct {
	name    string
	handler Handler[T]
	onDrop  DropFunc[T]

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs     chan Job[T]
	stopping chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	waiters  sync.WaitGroup
	mu       sync.RWMutex
	started  bool
	closed   bool
}

// NewQueue builds a queue with the provided handler.
func NewQueue[T any](name string, handler Handler[T], cfg QueueConfig) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 32
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue[T]{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		jobs:       make(chan Job[T], cfg.BufferSize),
		stopping:   make(chan struct{}),
	}
}

// OnDrop registers a callback for jobs that failed every attempt.
func (q *Queue[T]) OnDrop(fn DropFunc[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onDrop = fn
}

// Start begins worker consumption. Safe to call more than once.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.workers))
}

// Stop closes the queue for new jobs, drains what is buffered and waits for
// the workers to exit. Callers blocked in EnqueueWait are released first.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.started || q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.stopping)
	q.mu.Unlock()

	q.waiters.Wait()
	close(q.jobs)
	q.wg.Wait()
	q.cancel()
	q.logger.Info("queue stopped", zap.String("queue", q.name))
}

// ErrQueueFull is returned by Enqueue when the buffer has no room.
var ErrQueueFull = errors.New("queue full")

// Enqueue pushes a job without blocking; a full buffer is reported as
// ErrQueueFull.
func (q *Queue[T]) Enqueue(job Job[T]) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if err := q.accepting(); err != nil {
		return err
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

// EnqueueWait pushes a job, waiting for buffer room until ctx is done or
// the queue is stopped.
func (q *Queue[T]) EnqueueWait(ctx context.Context, job Job[T]) error {
	q.mu.RLock()
	if err := q.accepting(); err != nil {
		q.mu.RUnlock()
		return err
	}
	q.waiters.Add(1)
	q.mu.RUnlock()
	defer q.waiters.Done()

	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue %s: %w", q.name, ctx.Err())
	case <-q.stopping:
		return fmt.Errorf("queue %s stopped", q.name)
	}
}

// accepting must be called with q.mu held.
func (q *Queue[T]) accepting() error {
	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if q.closed {
		return fmt.Errorf("queue %s stopped", q.name)
	}
	return nil
}

func (q *Queue[T]) worker(workerID int) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.run(workerID, job)
	}
}

func (q *Queue[T]) run(workerID int, job Job[T]) {
	for {
		err := q.handler(q.ctx, job)
		if err == nil {
			return
		}
		if job.Attempt >= q.maxRetries || q.ctx.Err() != nil {
			q.logger.Warn("job dropped",
				zap.String("queue", q.name),
				zap.Int("worker", workerID),
				zap.String("job_id", job.ID),
				zap.String("kind", job.Kind),
				zap.Int("attempt", job.Attempt),
				zap.Error(err))
			q.mu.RLock()
			onDrop := q.onDrop
			q.mu.RUnlock()
			if onDrop != nil {
				onDrop(job, err)
			}
			return
		}
		job.Attempt++
		q.logger.Debug("job failed, retrying",
			zap.String("queue", q.name),
			zap.String("job_id", job.ID),
			zap.Int("attempt", job.Attempt),
			zap.Error(err))

		timer := time.NewTimer(q.retryDelay)
		select {
		case <-q.ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}
