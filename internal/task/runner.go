package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunnerConfig holds configuration for the task runner
type RunnerConfig struct {
	// WorkerCount determines how many jobs run concurrently
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// MaxPendingJobs caps live registry entries per job class (0 = unlimited)
	MaxPendingJobs int

	// OrphanTTL drops terminal jobs nobody polled for this long (0 = keep forever)
	OrphanTTL time.Duration

	// OrphanCheckInterval defines how often to sweep for orphans
	// If zero, defaults to one minute
	OrphanCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:         4,
		QueueSize:           64,
		MaxPendingJobs:      256,
		OrphanTTL:           0,
		OrphanCheckInterval: time.Minute,
	}
}

// Runner accepts jobs, dispatches them to the worker pool, and writes each
// outcome back into the registry of the job's class.
type Runner struct {
	registries map[Class]*Registry
	queue      *TaskQueue
	pool       *WorkerPool
	config     RunnerConfig
	logger     *slog.Logger

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewRunner creates a runner with one registry per job class.
func NewRunner(config RunnerConfig, logger *slog.Logger) *Runner {
	if config.OrphanCheckInterval <= 0 {
		config.OrphanCheckInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		registries: map[Class]*Registry{
			ClassText:  NewRegistry(ClassText, config.MaxPendingJobs),
			ClassImage: NewRegistry(ClassImage, config.MaxPendingJobs),
		},
		queue:      NewTaskQueue(config.QueueSize, logger),
		config:     config,
		logger:     logger,
		ctx:        ctx,
		cancelFunc: cancel,
	}
	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, r.finish, logger)
	return r
}

// Registry returns the registry for class, or nil for an unknown class.
func (r *Runner) Registry(class Class) *Registry {
	return r.registries[class]
}

// Start launches the workers and, when configured, the orphan sweeper.
func (r *Runner) Start() {
	r.pool.Start()

	if r.config.OrphanTTL > 0 {
		r.wg.Add(1)
		go r.orphanMonitor()
	}
}

// Stop stops accepting jobs and waits for queued and running jobs to finish
// or for ctx to expire.
func (r *Runner) Stop(ctx context.Context) error {
	r.cancelFunc()
	r.wg.Wait()
	return r.pool.Stop(ctx)
}

// Dispatch registers a job of class and enqueues the task built for its id.
// It never blocks: a full queue or registry is reported as an error and
// leaves no registry entry behind.
func (r *Runner) Dispatch(class Class, build func(id uuid.UUID) (Task, error)) (uuid.UUID, error) {
	reg := r.Registry(class)
	if reg == nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}

	id, err := reg.Submit()
	if err != nil {
		return uuid.Nil, err
	}

	task, err := build(id)
	if err != nil {
		reg.Discard(id)
		return uuid.Nil, fmt.Errorf("failed to build %s task: %w", class, err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		reg.Discard(id)
		return uuid.Nil, err
	}

	r.logger.Debug("job dispatched", "job_id", id, "job_class", class)
	return id, nil
}

// Poll reads the job through the registry of class.
func (r *Runner) Poll(class Class, id uuid.UUID) (PollResult, error) {
	reg := r.Registry(class)
	if reg == nil {
		return PollResult{}, fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	return reg.Poll(id), nil
}

// finish records a task outcome in its registry
func (r *Runner) finish(task Task, result string, err error) {
	reg := r.Registry(task.Class())
	if reg == nil {
		r.logger.Error("task finished with unknown class",
			"task_id", task.ID(),
			"task_class", task.Class())
		return
	}

	var recordErr error
	if err != nil {
		recordErr = reg.Fail(task.ID(), task.Class().FailureMessage(err))
	} else {
		recordErr = reg.Complete(task.ID(), result)
	}

	if recordErr != nil {
		level := slog.LevelError
		if errors.Is(recordErr, ErrJobNotFound) {
			// The entry was swept or discarded before the task finished
			level = slog.LevelWarn
		}
		r.logger.Log(context.Background(), level, "failed to record task outcome",
			"task_id", task.ID(),
			"task_class", task.Class(),
			"error", recordErr)
	}
}

// orphanMonitor periodically drops terminal jobs that were never polled
func (r *Runner) orphanMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.OrphanCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			for class, reg := range r.registries {
				if n := reg.SweepOrphans(r.config.OrphanTTL); n > 0 {
					r.logger.Info("dropped unpolled jobs",
						"job_class", class,
						"count", n)
				}
			}
		}
	}
}
