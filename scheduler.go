package fracview

import (
	"context"
	"fmt"
	"time"

	"github.com/gogpu/fracview/internal/escape"
	"github.com/gogpu/fracview/internal/frame"
	"github.com/gogpu/fracview/internal/parallel"
)

// previewThreshold is the first-pass row time from which refinement keeps
// drawing blocky previews of each new stripe row even after one row is done.
const previewThreshold = 80 * time.Millisecond

// batch is one scheduling decision: tasks over a leased compute buffer and
// what the buffer will describe once they have all run.
type batch struct {
	policy Policy
	lease  *frame.Lease
	tasks  []parallel.Task
	result frame.Result

	// timed batches record their wall time as the buffer's RowTime.
	timed bool
}

// schedule runs the compute scheduler until ctx is done or a batch cannot be
// planned.
func (e *Engine) schedule(ctx context.Context) error {
	tick := time.NewTicker(idleTick)
	defer tick.Stop()

	for {
		if err := e.scheduleOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-e.schedWake.C():
		case <-tick.C:
		}
	}
}

// scheduleOnce runs one scheduling cycle: pick a policy, dispatch its batch,
// wait for it and publish the result. It returns an error only for failures
// that must stop the engine.
func (e *Engine) scheduleOnce(ctx context.Context) error {
	want, ok := e.snapshot()
	if !ok {
		return nil
	}
	if !e.bufMu.TryLockFor(schedulerTimeout) {
		return nil
	}

	display, compute := e.pair.Display(), e.pair.Compute()
	if (e.dispatched && display.Tag == e.lastTag) || compute.WIP || compute.Fresh {
		e.bufMu.Unlock()
		return nil
	}

	b, err := e.plan(want)
	if err != nil || b == nil {
		e.bufMu.Unlock()
		return err
	}
	e.lastTag, e.dispatched = display.Tag, true
	e.bufMu.Unlock()

	return e.run(ctx, b)
}

// plan picks the first applicable policy and prepares its batch. It returns
// nil when there is nothing to do. Requires the buffer lock.
func (e *Engine) plan(want desired) (*batch, error) {
	display := e.pair.Display()
	target := want.viewport()

	switch {
	case !display.Viewport.SameGeometry(target):
		return e.planRerender(target)
	case !display.Stripes.Complete() && !display.Invalid():
		return e.planRefine()
	case !display.Missing.Zero():
		return e.planMarginFill()
	default:
		return nil, nil
	}
}

// bandCount returns the number of row bands for a whole-buffer pass.
func (e *Engine) bandCount(height int) int {
	return min(max(height/16, 3*e.pool.Workers()), parallel.MaxQueue)
}

// planRerender computes a factor-3 preview of the whole viewport, filled in
// on both axes. Only phase cell [0][0] is exact afterwards.
func (e *Engine) planRerender(v escape.Viewport) (*batch, error) {
	compute := e.pair.Compute()
	if err := compute.Realloc(v.Width, v.Height); err != nil {
		return nil, fmt.Errorf("fracview: allocate frame: %w", err)
	}
	lease, err := e.pair.Lease()
	if err != nil {
		return nil, err
	}

	preview := escape.Stripe{Factor: frame.StripeFactor, FillIn: true}
	bands := parallel.Bands(escape.Span{Start: 0, End: v.Height}, e.bandCount(v.Height), frame.StripeFactor)
	tasks := make([]parallel.Task, len(bands))
	for i, rows := range bands {
		tasks[i] = e.task(lease, v, escape.Region{
			Rows: rows,
			Cols: escape.Span{Start: 0, End: v.Width},
			H:    preview,
			V:    preview,
		})
	}

	var stripes frame.StripeGrid
	stripes.Mark(0, 0)
	return &batch{
		policy: PolicyRerender,
		lease:  lease,
		tasks:  tasks,
		result: frame.Result{Viewport: v, Stripes: stripes},
		timed:  true,
	}, nil
}

// planRefine computes the next stripe cell of the displayed frame's valid
// interior.
func (e *Engine) planRefine() (*batch, error) {
	display, compute := e.pair.Display(), e.pair.Compute()
	cell, ok := display.Stripes.NextCell()
	if !ok {
		return nil, nil
	}
	if err := compute.CopyFrom(display); err != nil {
		return nil, fmt.Errorf("fracview: allocate frame: %w", err)
	}
	lease, err := e.pair.Lease()
	if err != nil {
		return nil, err
	}

	v, m := display.Viewport, display.Missing
	rows := escape.Span{Start: m.Top, End: v.Height - m.Bottom}
	cols := escape.Span{Start: m.Left, End: v.Width - m.Right}

	// A new row is previewed with horizontal fill-in while the frame is still
	// coarse or slow to compute. Vertical fill-in would overwrite finished rows.
	fill := !cell.Started && (!display.Stripes.AnyRowDone() || display.RowTime >= previewThreshold)
	h := escape.Stripe{Factor: frame.StripeFactor, Phase: cell.Col, FillIn: fill}
	vs := escape.Stripe{Factor: frame.StripeFactor, Phase: cell.Row}

	n := min(parallel.MaxQueue, rows.Len()*frame.StripeFactor)
	bands := parallel.Bands(rows, n, 1)
	tasks := make([]parallel.Task, len(bands))
	for i, band := range bands {
		tasks[i] = e.task(lease, v, escape.Region{Rows: band, Cols: cols, H: h, V: vs})
	}

	stripes := display.Stripes
	stripes.Mark(cell.Row, cell.Col)
	return &batch{
		policy: PolicyRefine,
		lease:  lease,
		tasks:  tasks,
		result: frame.Result{
			Viewport: v,
			Missing:  m,
			Stripes:  stripes,
			RowTime:  display.RowTime,
		},
	}, nil
}

// planMarginFill computes the stale edges of the displayed frame at full
// resolution. A fully stale frame is recomputed entirely.
func (e *Engine) planMarginFill() (*batch, error) {
	display, compute := e.pair.Display(), e.pair.Compute()
	if err := compute.CopyFrom(display); err != nil {
		return nil, fmt.Errorf("fracview: allocate frame: %w", err)
	}
	lease, err := e.pair.Lease()
	if err != nil {
		return nil, err
	}

	v := display.Viewport
	var regions []escape.Region
	stripes := display.Stripes
	if display.Invalid() {
		regions = fullBands(v, e.bandCount(v.Height))
		stripes = frame.FullGrid()
	} else {
		regions = marginRegions(v.Width, v.Height, display.Missing)
	}

	tasks := make([]parallel.Task, len(regions))
	for i, r := range regions {
		tasks[i] = e.task(lease, v, r)
	}
	return &batch{
		policy: PolicyMarginFill,
		lease:  lease,
		tasks:  tasks,
		result: frame.Result{
			Viewport: v,
			Stripes:  stripes,
			RowTime:  display.RowTime,
		},
	}, nil
}

// fullBands splits the whole viewport into n full-resolution row bands.
func fullBands(v escape.Viewport, n int) []escape.Region {
	bands := parallel.Bands(escape.Span{Start: 0, End: v.Height}, n, 1)
	regions := make([]escape.Region, len(bands))
	for i, rows := range bands {
		regions[i] = escape.Region{Rows: rows, Cols: escape.Span{Start: 0, End: v.Width}}
	}
	return regions
}

// marginRegions partitions the stale edges of a w×h buffer into task
// regions. The task count follows the stale area. Top and bottom strips are
// full-width bands; side strips cover the interior rows, and when both sides
// are stale each band covers both of them in one two-span region.
func marginRegions(w, h int, m frame.Margins) []escape.Region {
	area := m.Area(w, h)
	if area == 0 {
		return nil
	}
	total := (area*parallel.MaxQueue + w*h - 1) / (w * h)
	total = min(max(total, 2), parallel.MaxQueue-1)

	interior := escape.Span{Start: m.Top, End: h - m.Bottom}
	pools := parallel.Split(total, (m.Top+m.Bottom)*w, (m.Left+m.Right)*interior.Len())
	edges := parallel.Split(pools[0], m.Top, m.Bottom)

	full := escape.Span{Start: 0, End: w}
	var regions []escape.Region
	for _, rows := range parallel.Bands(escape.Span{Start: 0, End: m.Top}, edges[0], 1) {
		regions = append(regions, escape.Region{Rows: rows, Cols: full})
	}
	for _, rows := range parallel.Bands(escape.Span{Start: h - m.Bottom, End: h}, edges[1], 1) {
		regions = append(regions, escape.Region{Rows: rows, Cols: full})
	}

	left := escape.Span{Start: 0, End: m.Left}
	right := escape.Span{Start: w - m.Right, End: w}
	for _, rows := range parallel.Bands(interior, pools[1], 1) {
		switch {
		case m.Left > 0 && m.Right > 0:
			regions = append(regions, escape.Region{Rows: rows, Cols: left, Cols2: right})
		case m.Left > 0:
			regions = append(regions, escape.Region{Rows: rows, Cols: left})
		case m.Right > 0:
			regions = append(regions, escape.Region{Rows: rows, Cols: right})
		}
	}
	return regions
}

// task builds a worker task writing into the leased buffer.
func (e *Engine) task(lease *frame.Lease, v escape.Viewport, r escape.Region) parallel.Task {
	return parallel.Task{
		Target:   lease.Pixels(),
		MaxIters: e.cfg.MaxIters,
		View:     v,
		Region:   r,
	}
}

// run dispatches b, waits for every task and publishes the result under the
// buffer lock. A batch interrupted by shutdown is dropped.
func (e *Engine) run(ctx context.Context, b *batch) error {
	start := time.Now()
	err := e.queue.Run(ctx, b.tasks)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			if e.bufMu.TryLockFor(schedulerTimeout) {
				b.lease.Abort()
				e.bufMu.Unlock()
			}
			return nil
		}
		return fmt.Errorf("fracview: dispatch %s batch: %w", b.policy, err)
	}

	if b.timed {
		b.result.RowTime = elapsed
	}
	for !e.bufMu.TryLockFor(schedulerTimeout) {
		if ctx.Err() != nil {
			return nil
		}
	}
	b.lease.Release(b.result)
	e.bufMu.Unlock()

	e.stats.batches[b.policy].Add(1)
	e.stats.lastBatch.Store(int64(elapsed))
	e.coordWake.Notify()

	Logger().Debug("batch done",
		"policy", b.policy,
		"tasks", len(b.tasks),
		"duration", elapsed)
	return nil
}
