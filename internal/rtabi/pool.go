package rtabi

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool is the CPU-bound execution mode: a thread pool with
// work-stealing. Go's own scheduler already work-steals goroutines across
// Ms, so Pool's job is purely to bound concurrency -- `golang.org/x/sync`
// (the same pack dependency internal/orchestrator's worker pool uses for
// its errgroup) supplies the weighted semaphore this wraps.
type Pool struct {
	sem *semaphore.Weighted
	ctx context.Context
}

// NewPool bounds concurrent CPU tasks to maxWorkers.
func NewPool(ctx context.Context, maxWorkers int64) *Pool {
	return &Pool{sem: semaphore.NewWeighted(maxWorkers), ctx: ctx}
}

// Spawn schedules fn on the pool as a Task, matching the cooperative
// scheduler's Task handle so CPU-bound and I/O-bound work compose under
// the same await/gather API. fn only starts once a pool slot is free;
// Spawn itself returns immediately.
func (p *Pool) Spawn(sched *Scheduler, fn func() (any, error)) *Task {
	return sched.Spawn(func(t *Task) (any, error) {
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return nil, err
		}
		defer p.sem.Release(1)
		if t.isCancelled() {
			return nil, &Cancelled{TaskID: t.id}
		}
		return fn()
	})
}

// Context returns the pool's context; cancelling it unblocks every task
// currently waiting on a pool slot.
func (p *Pool) Context() context.Context { return p.ctx }
