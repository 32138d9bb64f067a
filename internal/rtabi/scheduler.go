package rtabi

import (
	"context"
	"fmt"
	"sync"
)

// Cancelled is the error a task finishes with when its cancel flag was set
// before its body started (for a Pool task: before it got a pool slot).
// Cancellation never interrupts a body that is already running.
type Cancelled struct{ TaskID int }

func (c *Cancelled) Error() string { return fmt.Sprintf("task %d cancelled", c.TaskID) }

// Task is one unit of cooperative scheduling. Its body runs at most once
// (sync.Once-guarded) no matter how many callers await it.
type Task struct {
	id        int
	once      sync.Once
	done      chan struct{}
	result    any
	err       error
	cancelled bool
	mu        sync.Mutex
}

func (t *Task) ID() int { return t.id }

// Cancel marks the task's cancel flag. The flag is checked before the body
// starts; Scheduler.Await does not check it, so a body that is already
// running completes unless it checks the flag itself.
func (t *Task) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

func (t *Task) isCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Scheduler is the cooperative scheduler for the I/O-bound execution
// mode: a task blocks at Await until the awaited task is done. Each Spawn
// starts its task's goroutine immediately; the order in which ready tasks
// run is left to Go's own scheduler and is not guaranteed to be FIFO.
type Scheduler struct {
	mu       sync.Mutex
	nextID   int
	tasks    map[int]*Task
}

func NewScheduler() *Scheduler {
	return &Scheduler{tasks: map[int]*Task{}}
}

// Spawn starts fn as a new task and returns immediately with a handle; fn
// runs at most once even if Join/Await is called on the returned Task more
// than once.
func (s *Scheduler) Spawn(fn func(t *Task) (any, error)) *Task {
	s.mu.Lock()
	s.nextID++
	t := &Task{id: s.nextID, done: make(chan struct{})}
	s.tasks[t.id] = t
	s.mu.Unlock()

	go t.once.Do(func() {
		defer close(t.done)
		if t.isCancelled() {
			t.err = &Cancelled{TaskID: t.id}
			return
		}
		t.result, t.err = fn(t)
	})
	return t
}

// Await blocks the calling task until target completes, returning its
// result or error. If ctx is cancelled first, Await returns ctx.Err()
// without waiting further -- the caller's own suspension point.
func (s *Scheduler) Await(ctx context.Context, target *Task) (any, error) {
	select {
	case <-target.done:
		return target.result, target.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Gather waits for every task in tasks to finish, returning their results
// in the same order. The first error
// encountered (in task order, not completion order) is returned alongside
// whatever partial results are available.
func (s *Scheduler) Gather(ctx context.Context, tasks []*Task) ([]any, error) {
	results := make([]any, len(tasks))
	var firstErr error
	for i, t := range tasks {
		r, err := s.Await(ctx, t)
		results[i] = r
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return results, firstErr
}

// Join blocks until every task the scheduler has ever spawned has
// finished -- the whole-program drain point a `main` task's exit triggers.
func (s *Scheduler) Join(ctx context.Context) error {
	s.mu.Lock()
	all := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		all = append(all, t)
	}
	s.mu.Unlock()
	_, err := s.Gather(ctx, all)
	return err
}
