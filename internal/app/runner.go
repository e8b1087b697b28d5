package app

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of batch work. A non-nil error marks the task failed;
// it is recorded in the batch result and never aborts sibling tasks.
type Task struct {
	URL string
	Run func(ctx context.Context) error
}

// BatchFailure records one failed task.
type BatchFailure struct {
	URL string
	Err error
}

// BatchResult aggregates the outcome of a batch run.
type BatchResult struct {
	mu        sync.Mutex
	Succeeded int
	Failed    []BatchFailure
}

func (r *BatchResult) success() {
	r.mu.Lock()
	r.Succeeded++
	r.mu.Unlock()
}

func (r *BatchResult) failure(url string, err error) {
	r.mu.Lock()
	r.Failed = append(r.Failed, BatchFailure{URL: url, Err: err})
	r.mu.Unlock()
}

// RunBatch executes tasks with a sliding concurrency window of
// min(limit, len(tasks)): as each task settles, the next pending one is
// admitted. Submission follows input order; completion order is
// unconstrained. Returns only after every task has settled.
func RunBatch(ctx context.Context, tasks []Task, limit int) *BatchResult {
	result := &BatchResult{}
	if len(tasks) == 0 {
		return result
	}

	if limit < 1 {
		limit = 1
	}
	if limit > len(tasks) {
		limit = len(tasks)
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if err := task.Run(ctx); err != nil {
				result.failure(task.URL, err)
			} else {
				result.success()
			}
			// Task failures are contained per job, never fatal to the run.
			return nil
		})
	}

	g.Wait()
	return result
}
