package parallel

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// MaxWorkers bounds the number of worker goroutines in a pool.
const MaxWorkers = 16

const (
	// claimTimeout bounds how long a worker waits for the task lock.
	claimTimeout = time.Millisecond

	// idlePoll is the longest a worker sleeps between claim attempts when
	// no publish notification arrives.
	idlePoll = 3 * time.Millisecond
)

// WorkerPool is a fixed set of goroutines draining a TaskQueue.
//
// Each worker repeatedly claims one unclaimed task, runs it, and marks it
// complete. Workers that find nothing to do wait for the queue's next publish
// (or a short idle timeout) and try again; an empty queue is the normal idle
// state, not an error.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	// workers is the number of worker goroutines.
	workers int

	// queue is the shared task table.
	queue *TaskQueue

	// cancel stops the workers started by Start.
	cancel context.CancelFunc

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running indicates whether workers have been started and not closed.
	running atomic.Bool

	// completed counts finished tasks over the pool's lifetime.
	completed atomic.Int64
}

// ClampWorkers bounds a requested worker count to [1, MaxWorkers].
// Zero or negative means GOMAXPROCS.
func ClampWorkers(workers int) int {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return min(max(workers, 1), MaxWorkers)
}

// NewWorkerPool creates a pool of workers draining queue.
// The worker count is bounded with ClampWorkers. Workers do not run until
// Start is called.
func NewWorkerPool(workers int, queue *TaskQueue) *WorkerPool {
	return &WorkerPool{
		workers: ClampWorkers(workers),
		queue:   queue,
	}
}

// Start launches the worker goroutines. They run until ctx is done or Close
// is called. Starting a running pool is a no-op.
func (p *WorkerPool) Start(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker(ctx, i)
	}
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker(ctx context.Context, _ int) {
	defer p.wg.Done()

	idle := time.NewTimer(idlePoll)
	defer idle.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		task, wake, ok := p.queue.Claim(claimTimeout)
		if ok {
			task.Run()
			p.completed.Add(1)
			p.queue.Complete()
			continue
		}

		// Nothing claimable (or the lock was busy): yield until the next
		// publish, the idle timeout, or shutdown.
		idle.Reset(idlePoll)
		select {
		case <-ctx.Done():
			return
		case <-wake:
		case <-idle.C:
		}
	}
}

// Close stops the workers and waits for them to exit. A worker in the middle
// of a task finishes it first. Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.cancel()
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the workers are started and not closed.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// Completed returns the number of tasks the pool has finished.
func (p *WorkerPool) Completed() int64 {
	return p.completed.Load()
}
