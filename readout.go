package fracview

import (
	"context"
	"image"
	"time"
)

// TryReadFrame converts the displayed frame into dst as RGBA bytes, four per
// pixel, row-major. It waits briefly for the buffer lock and reports false,
// leaving dst untouched, when the lock is busy, no frame has been computed
// yet, the frame is not width×height, or dst is shorter than width*height*4.
//
// TryReadFrame never blocks on computation; call it at display rate.
func (e *Engine) TryReadFrame(dst []byte, width, height int) bool {
	if width <= 0 || height <= 0 || len(dst) < width*height*4 {
		return false
	}
	if !e.bufMu.TryLockFor(readoutTimeout) {
		return false
	}
	defer e.bufMu.Unlock()

	display := e.pair.Display()
	if display.Empty() || display.Viewport.Width != width || display.Viewport.Height != height {
		return false
	}
	e.palette.Fill(dst, display.Pixels)
	return true
}

// Present reads the displayed frame Config.FrameRate times per second and
// calls fn with each frame successfully read. The image is reused between
// calls; fn must not retain it. Present returns when ctx is done or the
// engine stops, with the error that stopped the engine, if any.
func (e *Engine) Present(ctx context.Context, width, height int, fn func(*image.RGBA)) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	tick := time.NewTicker(time.Second / time.Duration(e.cfg.FrameRate))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.done:
			return e.Wait()
		case <-tick.C:
			if e.TryReadFrame(img.Pix, width, height) {
				fn(img)
			}
		}
	}
}
