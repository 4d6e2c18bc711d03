package task

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// CompletionHandler receives the outcome of every executed task.
type CompletionHandler func(task Task, result string, err error)

// WorkerPool manages a fixed set of worker goroutines that drain a task queue.
// Running tasks are never cancelled; Stop waits for the queue to drain.
type WorkerPool struct {
	// queue provides the tasks to be processed
	queue *TaskQueue

	// workerCount is the number of concurrent workers to start
	workerCount int

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is handed to every task; it is never cancelled by the pool
	ctx context.Context

	logger *slog.Logger

	// onDone is called after each task with its result or error
	onDone CompletionHandler

	startOnce sync.Once
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 4,
	}
}

// NewWorkerPool creates a new worker pool reading from queue
func NewWorkerPool(queue *TaskQueue, config WorkerPoolConfig, onDone CompletionHandler, logger *slog.Logger) *WorkerPool {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	return &WorkerPool{
		queue:       queue,
		workerCount: workerCount,
		ctx:         context.Background(),
		logger:      logger,
		onDone:      onDone,
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workerCount; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
		p.logger.Info("worker pool started", "worker_count", p.workerCount)
	})
}

// Stop closes the queue and waits for the workers to finish every queued task,
// or until ctx is done.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.queue.Close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool stop timed out, abandoning running tasks",
			"queued", p.queue.Len())
		return ctx.Err()
	}
}

// worker processes tasks until the queue is closed and drained
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)
	for task := range p.queue.GetChannel() {
		p.processTask(task, id)
	}
	p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
}

// processTask executes one task and reports its outcome. A panic inside the
// task is reported as a task error instead of killing the worker.
func (p *WorkerPool) processTask(task Task, workerID int) {
	logger := p.logger.With(
		"task_id", task.ID(),
		"task_class", task.Class(),
		"worker_id", workerID,
	)
	logger.Info("processing task")

	result, err := p.execute(task)
	if err != nil {
		logger.Error("task execution failed", "error", err)
	} else {
		logger.Info("task completed successfully")
	}

	if p.onDone != nil {
		p.onDone(task, result, err)
	}
}

func (p *WorkerPool) execute(task Task) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked",
				"task_id", task.ID(),
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return task.Execute(p.ctx)
}
