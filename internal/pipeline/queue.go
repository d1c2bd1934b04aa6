package pipeline

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueFull is returned when the job queue cannot accept more work.
var ErrQueueFull = errors.New("job queue full")

// Queue is a bounded in-process job queue with a worker pool.
type Queue struct {
	jobs chan string
	wg   sync.WaitGroup
}

// NewQueue creates a queue holding at most capacity pending job ids.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{jobs: make(chan string, capacity)}
}

// Enqueue adds a job id without blocking.
func (q *Queue) Enqueue(jobID string) error {
	select {
	case q.jobs <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches workers that run queued jobs until the context is
// cancelled.
func (q *Queue) Start(ctx context.Context, workers int, run func(ctx context.Context, jobID string)) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case jobID := <-q.jobs:
					run(ctx, jobID)
				}
			}
		}()
	}
}

// Wait blocks until all workers have exited.
func (q *Queue) Wait() {
	q.wg.Wait()
}
