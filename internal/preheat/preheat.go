// Package preheat runs the fixed set of warmup tasks that populate the
// shared K/V store before a replay run starts emitting.
package preheat

import (
	"context"
	"log"
	"time"

	"github.com/quantreplay/replay-engine/internal/metrics"
)

// Task is a single preheat job. The set of tasks is fixed at process
// initialization; there is no runtime plugin discovery.
type Task interface {
	ID() string
	Run(ctx context.Context, targetDate time.Time, symbols []string) (count int, err error)
}

// slowTaskThreshold is the duration above which a completed task is logged
// even on success, per the coordinator's "tasks exceeding 60s" note.
const slowTaskThreshold = 60 * time.Second

// Result captures the outcome of a single task's run.
type Result struct {
	TaskID string
	Count  int
	Err    error
}

// Registry runs its tasks sequentially in registration order. A task's
// failure is logged and skipped; it never aborts the remaining tasks.
type Registry struct {
	tasks []Task
}

// NewRegistry builds a Registry over the given tasks, fixed for the
// lifetime of the process.
func NewRegistry(tasks ...Task) *Registry {
	return &Registry{tasks: tasks}
}

// RunAll invokes every registered task in order, collecting per-task
// results. It never returns an error itself: a PreheatError is informational
// only, so it is reported through each Result rather than aborting the run.
func (r *Registry) RunAll(ctx context.Context, targetDate time.Time, symbols []string) []Result {
	results := make([]Result, 0, len(r.tasks))
	for _, task := range r.tasks {
		start := time.Now()
		count, err := task.Run(ctx, targetDate, symbols)
		elapsed := time.Since(start)

		outcome := "ok"
		if err != nil {
			outcome = "failed"
			log.Printf("preheat task %s failed: %v", task.ID(), err)
		} else if elapsed > slowTaskThreshold {
			log.Printf("preheat task %s completed in %s (exceeds %s threshold), wrote %d keys", task.ID(), elapsed, slowTaskThreshold, count)
		}
		metrics.PreheatTaskDuration.WithLabelValues(task.ID(), outcome).Observe(elapsed.Seconds())
		results = append(results, Result{TaskID: task.ID(), Count: count, Err: err})
	}
	return results
}
