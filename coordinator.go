package fracview

import (
	"context"
	"math"
	"time"
)

// coordinate runs the pan coordinator until ctx is done.
func (e *Engine) coordinate(ctx context.Context) error {
	tick := time.NewTicker(idleTick)
	defer tick.Stop()

	for {
		e.coordinateOnce()

		select {
		case <-ctx.Done():
			return nil
		case <-e.coordWake.C():
		case <-tick.C:
		}
	}
}

// coordinateOnce runs one check-swap, apply-pan, release cycle. It skips the
// cycle when either lock is busy.
func (e *Engine) coordinateOnce() {
	want, ok := e.snapshot()
	if !ok {
		return
	}
	if !e.bufMu.TryLockFor(coordinatorTimeout) {
		return
	}

	swapped := e.pair.TrySwap()
	panned := e.applyPan(want)
	tag := e.pair.Display().Tag
	e.bufMu.Unlock()

	if swapped {
		e.stats.swaps.Add(1)
		Logger().Debug("swap", "tag", tag)
	}
	if swapped || panned {
		e.schedWake.Notify()
	}
}

// applyPan shifts the display buffer toward the desired offset. Shifts are
// measured in desired pixel steps; an offset change smaller than half a pixel
// on both axes is left for later. Requires the buffer lock.
func (e *Engine) applyPan(want desired) bool {
	display := e.pair.Display()
	if display.Empty() {
		return false
	}
	v := display.Viewport
	if v.CenterX == want.offsetX && v.CenterY == want.offsetY {
		return false
	}

	step := want.pixelStep()
	sx := int(math.Round((v.CenterX - want.offsetX) / step))
	sy := int(math.Round((v.CenterY - want.offsetY) / step))
	if sx == 0 && sy == 0 {
		return false
	}

	display.Pan(sx, sy)
	display.Viewport.CenterX = want.offsetX
	display.Viewport.CenterY = want.offsetY
	e.pair.Bump(display)

	e.stats.pans.Add(1)
	Logger().Debug("pan",
		"dx", sx, "dy", sy,
		"missing", display.Missing,
		"tag", display.Tag)
	return true
}
