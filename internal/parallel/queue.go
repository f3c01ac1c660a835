package parallel

import (
	"context"
	"errors"
	"time"

	"github.com/gogpu/fracview/internal/escape"
)

// MaxQueue is the capacity of a TaskQueue: the largest batch one scheduling
// round may publish.
const MaxQueue = 64

var (
	// ErrQueueFull is returned when a batch exceeds MaxQueue tasks.
	ErrQueueFull = errors.New("parallel: batch exceeds queue capacity")

	// ErrBatchInFlight is returned when a batch is published before the
	// previous one has drained.
	ErrBatchInFlight = errors.New("parallel: previous batch still in flight")
)

// Task is one rectangular unit of work: run the escape-time computation for
// Region of View into Target.
//
// Tasks in a batch write disjoint pixel ranges of Target, so they may run in
// any order and in parallel. A task is immutable once published except for
// Claimed, which the queue owns.
type Task struct {
	Claimed  bool
	Target   []uint16
	MaxIters int
	View     escape.Viewport
	Region   escape.Region
}

// Run computes the task's region into its target.
func (t *Task) Run() {
	escape.Compute(t.Target, t.MaxIters, t.View, t.Region)
}

// TaskQueue is a fixed-capacity table of pending tasks with an outstanding
// count. One producer publishes whole batches; any number of consumers claim
// and complete individual tasks.
//
// All metadata is guarded by the task lock, which is separate from any lock
// protecting pixel buffers so that workers never contend with readers of the
// finished frame.
type TaskQueue struct {
	mu *TimedMutex

	tasks     [MaxQueue]Task
	total     int
	remaining int

	// published is closed (and replaced) every time a batch is published.
	published chan struct{}

	// drained is closed when remaining reaches zero.
	drained chan struct{}
}

// NewTaskQueue returns an empty queue.
func NewTaskQueue() *TaskQueue {
	drained := make(chan struct{})
	close(drained)
	return &TaskQueue{
		mu:        NewTimedMutex(),
		published: make(chan struct{}),
		drained:   drained,
	}
}

// Publish replaces the queue's contents with tasks and sets the outstanding
// count to len(tasks). It returns a channel that is closed once every task
// has completed. Publishing an empty batch returns an already-closed channel.
func (q *TaskQueue) Publish(ctx context.Context, tasks []Task) (<-chan struct{}, error) {
	if len(tasks) > MaxQueue {
		return nil, ErrQueueFull
	}
	if err := q.mu.Lock(ctx); err != nil {
		return nil, err
	}
	defer q.mu.Unlock()

	if q.remaining > 0 {
		return nil, ErrBatchInFlight
	}

	for i := range tasks {
		q.tasks[i] = tasks[i]
		q.tasks[i].Claimed = false
	}
	for i := len(tasks); i < q.total; i++ {
		q.tasks[i] = Task{}
	}
	q.total = len(tasks)
	q.remaining = len(tasks)

	q.drained = make(chan struct{})
	if q.remaining == 0 {
		close(q.drained)
	}

	close(q.published)
	q.published = make(chan struct{})

	return q.drained, nil
}

// Claim takes the first unclaimed task, waiting at most timeout for the task
// lock. When no task can be claimed it returns ok == false together with a
// channel that is closed on the next Publish (nil if the lock was missed).
func (q *TaskQueue) Claim(timeout time.Duration) (task Task, wake <-chan struct{}, ok bool) {
	if !q.mu.TryLockFor(timeout) {
		return Task{}, nil, false
	}
	defer q.mu.Unlock()

	if q.remaining > 0 {
		for i := 0; i < q.total; i++ {
			if !q.tasks[i].Claimed {
				q.tasks[i].Claimed = true
				return q.tasks[i], nil, true
			}
		}
	}
	return Task{}, q.published, false
}

// Complete records that one claimed task has finished. The completion of the
// last task closes the batch's drained channel.
func (q *TaskQueue) Complete() {
	// A completion is never dropped: retry the short acquisition until it
	// succeeds.
	for !q.mu.TryLockFor(claimTimeout) {
	}
	defer q.mu.Unlock()

	if q.remaining <= 0 {
		return
	}
	q.remaining--
	if q.remaining == 0 {
		close(q.drained)
	}
}

// Run publishes tasks and blocks until all of them have completed or ctx is
// done. It is the scheduler's batch-completion synchronization point.
func (q *TaskQueue) Run(ctx context.Context, tasks []Task) error {
	drained, err := q.Publish(ctx, tasks)
	if err != nil {
		return err
	}
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Remaining returns the number of tasks of the current batch that have not
// completed. It returns -1 if the task lock could not be taken promptly.
func (q *TaskQueue) Remaining() int {
	if !q.mu.TryLockFor(time.Millisecond) {
		return -1
	}
	defer q.mu.Unlock()
	return q.remaining
}

// Total returns the size of the most recently published batch. It returns
// -1 if the task lock could not be taken promptly.
func (q *TaskQueue) Total() int {
	if !q.mu.TryLockFor(time.Millisecond) {
		return -1
	}
	defer q.mu.Unlock()
	return q.total
}
