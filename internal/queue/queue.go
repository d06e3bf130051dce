// Package queue is the background dispatcher behind the "enqueue async sync
// job" contract. Tasks are fire-and-forget; delivery is at-least-once in
// spirit (a full pool falls back to inline execution), so enqueued work must
// be idempotent.
package queue

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Task is a unit of background work.
type Task func(ctx context.Context)

// Queue dispatches tasks onto an ants worker pool.
type Queue struct {
	pool    *ants.Pool
	logger  *zap.Logger
	timeout time.Duration
}

// New creates a queue with the given number of workers.
func New(workers int, logger *zap.Logger) (*Queue, error) {
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Queue{pool: pool, logger: logger, timeout: 2 * time.Minute}, nil
}

// Enqueue submits a task for background execution. When the pool is
// saturated the task runs inline instead of being dropped.
func (q *Queue) Enqueue(name string, task Task) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				q.logger.Error("background task panicked",
					zap.String("task", name), zap.Any("panic", r))
			}
		}()
		task(ctx)
	}

	if err := q.pool.Submit(run); err != nil {
		q.logger.Warn("worker pool saturated, running task inline",
			zap.String("task", name), zap.Error(err))
		run()
	}
}

// RunNow executes a task synchronously with the caller's context.
func (q *Queue) RunNow(ctx context.Context, task Task) {
	task(ctx)
}

// Depth returns the number of tasks currently running.
func (q *Queue) Depth() int {
	return q.pool.Running()
}

// Release drains the pool and stops the workers.
func (q *Queue) Release() {
	q.pool.Release()
}
