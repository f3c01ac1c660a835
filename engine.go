package fracview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/fracview/internal/escape"
	"github.com/gogpu/fracview/internal/frame"
	"github.com/gogpu/fracview/internal/palette"
	"github.com/gogpu/fracview/internal/parallel"
)

// Viewport maps buffer pixels onto the complex plane.
type Viewport = escape.Viewport

var (
	// ErrBusy is returned when a request could not take the status lock in
	// time. The request had no effect and may be retried.
	ErrBusy = errors.New("fracview: engine busy")

	// ErrClosed is returned when starting an engine that was closed.
	ErrClosed = errors.New("fracview: engine closed")

	// ErrInvalidDimensions is returned for a non-positive or oversized
	// viewport size.
	ErrInvalidDimensions = frame.ErrInvalidDimensions

	// ErrBufferTooLarge is returned when a viewport needs more than
	// frame.MaxPixels pixels.
	ErrBufferTooLarge = frame.ErrBufferTooLarge
)

const (
	// statusTimeout bounds every acquisition of the status lock.
	statusTimeout = 100 * time.Millisecond

	// Buffer lock timeouts per caller. A miss skips the cycle.
	coordinatorTimeout = 3 * time.Millisecond
	schedulerTimeout   = 5 * time.Millisecond
	readoutTimeout     = 100 * time.Millisecond

	// idleTick is the longest either loop sleeps without a notification.
	idleTick = 3 * time.Millisecond
)

// desired is the viewport requested through the setters.
type desired struct {
	width   int
	height  int
	zoom    float64
	offsetX float64
	offsetY float64
}

// pixelStep returns the plane distance between adjacent pixels.
func (d desired) pixelStep() float64 {
	return d.zoom * 2 / float64(min(d.width, d.height))
}

func (d desired) viewport() Viewport {
	return Viewport{
		Width:     d.width,
		Height:    d.height,
		PixelStep: d.pixelStep(),
		CenterX:   d.offsetX,
		CenterY:   d.offsetY,
	}
}

// Engine computes Mandelbrot frames for a viewport that can be panned,
// zoomed and resized at any time, while a reader takes finished frames at its
// own rate.
//
// An Engine runs three kinds of goroutines: a pan coordinator that swaps
// finished frames in and applies pans to the displayed frame, a compute
// scheduler that decides what to compute next and publishes it as a batch of
// tasks, and a pool of workers that run the tasks.
//
// All methods are safe for concurrent use.
type Engine struct {
	cfg Config

	// status guards want.
	status *parallel.TimedMutex
	want   desired

	// bufMu guards pair and every buffer's metadata.
	bufMu *parallel.TimedMutex
	pair  *frame.Pair

	queue   *parallel.TaskQueue
	pool    *parallel.WorkerPool
	palette *palette.Palette

	coordWake *parallel.Notifier
	schedWake *parallel.Notifier

	// Scheduler goroutine state.
	lastTag    uint64
	dispatched bool

	stats stats

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// New creates an engine. The configuration starts from DefaultConfig and is
// modified by opts. The initial compute buffer is allocated here, so an
// unusable viewport size is reported by New.
//
// The engine does not compute anything until Start is called.
func New(opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		status: parallel.NewTimedMutex(),
		want: desired{
			width:   cfg.Width,
			height:  cfg.Height,
			zoom:    cfg.Zoom,
			offsetX: cfg.CenterX,
			offsetY: cfg.CenterY,
		},
		bufMu:     parallel.NewTimedMutex(),
		pair:      frame.NewPair(),
		queue:     parallel.NewTaskQueue(),
		palette:   palette.New(cfg.MaxIters),
		coordWake: parallel.NewNotifier(),
		schedWake: parallel.NewNotifier(),
		done:      make(chan struct{}),
	}
	e.pool = parallel.NewWorkerPool(cfg.Workers, e.queue)

	if err := e.pair.Compute().Realloc(cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("fracview: allocate frame: %w", err)
	}
	return e, nil
}

// Config returns the validated configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Start launches the workers, the pan coordinator and the compute scheduler.
// They run until ctx is done, Close is called, or a fatal error occurs.
// Starting a running engine is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.started {
		return nil
	}
	e.started = true

	ctx, e.cancel = context.WithCancel(ctx)
	e.pool.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.coordinate(gctx) })
	g.Go(func() error { return e.schedule(gctx) })

	go func() {
		err := g.Wait()
		e.pool.Close()
		if err != nil {
			Logger().Error("engine stopped", "err", err)
		} else {
			Logger().Info("engine stopped")
		}
		e.mu.Lock()
		e.err = err
		e.mu.Unlock()
		close(e.done)
	}()

	Logger().Info("engine started",
		"workers", e.pool.Workers(),
		"width", e.cfg.Width,
		"height", e.cfg.Height,
		"max_iters", e.cfg.MaxIters)
	return nil
}

// Done returns a channel that is closed once the engine's goroutines have
// all exited.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the engine stops and returns the error that stopped it,
// or nil after a normal shutdown.
func (e *Engine) Wait() error {
	<-e.done
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Close stops the engine: the loops are cancelled and joined, then the
// workers. A batch in flight is abandoned. Close returns the error that
// stopped the engine, if any. It is safe to call Close more than once, and on
// an engine that was never started.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		if e.started {
			return e.Wait()
		}
		return nil
	}
	e.closed = true
	started := e.started
	cancel := e.cancel
	e.mu.Unlock()

	if !started {
		close(e.done)
		return nil
	}
	cancel()
	return e.Wait()
}

// snapshot copies the desired viewport under the status lock.
func (e *Engine) snapshot() (desired, bool) {
	if !e.status.TryLockFor(statusTimeout) {
		return desired{}, false
	}
	defer e.status.Unlock()
	return e.want, true
}

// Desired returns the viewport most recently requested through the setters.
func (e *Engine) Desired() (Viewport, error) {
	d, ok := e.snapshot()
	if !ok {
		return Viewport{}, ErrBusy
	}
	return d.viewport(), nil
}

// Policy is the kind of work one scheduling cycle dispatches.
type Policy int

const (
	// PolicyIdle means nothing needed computing.
	PolicyIdle Policy = iota

	// PolicyRerender computes a striped preview of the whole viewport after
	// a zoom or resize.
	PolicyRerender

	// PolicyRefine computes one more stripe phase of the displayed frame.
	PolicyRefine

	// PolicyMarginFill computes the edges exposed by panning.
	PolicyMarginFill
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyIdle:
		return "idle"
	case PolicyRerender:
		return "rerender"
	case PolicyRefine:
		return "refine"
	case PolicyMarginFill:
		return "margin-fill"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Stats is a snapshot of engine activity counters.
type Stats struct {
	Rerenders   uint64
	Refinements uint64
	MarginFills uint64
	Swaps       uint64
	Pans        uint64

	// TasksCompleted counts tasks finished by the worker pool.
	TasksCompleted int64

	// LastBatch is the wall time of the most recent batch.
	LastBatch time.Duration
}

// Batches returns the total number of batches dispatched.
func (s Stats) Batches() uint64 {
	return s.Rerenders + s.Refinements + s.MarginFills
}

type stats struct {
	batches   [PolicyMarginFill + 1]atomic.Uint64
	swaps     atomic.Uint64
	pans      atomic.Uint64
	lastBatch atomic.Int64
}

// Stats returns the current activity counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Rerenders:      e.stats.batches[PolicyRerender].Load(),
		Refinements:    e.stats.batches[PolicyRefine].Load(),
		MarginFills:    e.stats.batches[PolicyMarginFill].Load(),
		Swaps:          e.stats.swaps.Load(),
		Pans:           e.stats.pans.Load(),
		TasksCompleted: e.pool.Completed(),
		LastBatch:      time.Duration(e.stats.lastBatch.Load()),
	}
}
