// Package pipeline runs the per-cluster CHA/DHA/Economics/decision
// pipeline across a batch of clusters with bounded task-level
// parallelism (§5). Each worker runs an independent cluster pipeline and
// shares no mutable state with any other; failure in one cluster never
// aborts the batch, mirroring the teacher's per-job isolation in
// internal/scheduler (JobResult carries its own error, Start loops
// independently per job).
package pipeline

import (
	"context"
	"sync"
	"time"
)

// ClusterTask is one cluster's unit of work. Run must not share mutable
// state with any other task's Run — the batch runner makes no ordering
// guarantee across clusters beyond "each runs exactly once."
type ClusterTask struct {
	ClusterID string
	Run       func(ctx context.Context) (interface{}, error)
}

// ClusterResult is one cluster's outcome, always populated regardless of
// success or failure (§7: per-cluster pipelines are isolated).
type ClusterResult struct {
	ClusterID string
	Output    interface{}
	Err       error
	Skipped   bool
	StartedAt time.Time
	Duration  time.Duration
}

// BatchRunner executes ClusterTasks with a bounded worker pool. Workers
// is clamped to at least 1.
type BatchRunner struct {
	Workers int
}

// NewBatchRunner returns a runner with the given worker-pool size.
func NewBatchRunner(workers int) *BatchRunner {
	if workers < 1 {
		workers = 1
	}
	return &BatchRunner{Workers: workers}
}

// Run dispatches every task to the worker pool and collects results in
// task order. Cancellation is cooperative: a task already running is
// allowed to finish (cancellation waits for completion, §5). Once ctx is
// done, a task is marked Skipped unless a worker is ready to take it at
// the same moment; select picks between the two at random, so a task can
// still be dispatched after cancellation.
func (r *BatchRunner) Run(ctx context.Context, tasks []ClusterTask) []ClusterResult {
	results := make([]ClusterResult, len(tasks))
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = runOne(ctx, tasks[i])
			}
		}()
	}

	for i := range tasks {
		select {
		case <-ctx.Done():
			results[i] = ClusterResult{ClusterID: tasks[i].ClusterID, Skipped: true, Err: ctx.Err()}
			continue
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return results
}

func runOne(ctx context.Context, t ClusterTask) ClusterResult {
	start := time.Now()
	out, err := t.Run(ctx)
	return ClusterResult{
		ClusterID: t.ClusterID,
		Output:    out,
		Err:       err,
		StartedAt: start,
		Duration:  time.Since(start),
	}
}
