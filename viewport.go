package fracview

import (
	"math"

	"github.com/gogpu/fracview/internal/frame"
)

// update applies fn to the desired viewport under the status lock and wakes
// both loops.
func (e *Engine) update(op string, fn func(d *desired) error) error {
	if !e.status.TryLockFor(statusTimeout) {
		Logger().Warn("request dropped, status lock busy", "op", op)
		return ErrBusy
	}
	err := fn(&e.want)
	e.status.Unlock()
	if err != nil {
		Logger().Warn("request rejected", "op", op, "err", err)
		return err
	}

	e.coordWake.Notify()
	e.schedWake.Notify()
	return nil
}

// Pan moves the viewport by (dx, dy) pixels: the content follows the
// pointer, so a positive dx reveals what lies to the left.
func (e *Engine) Pan(dx, dy int) error {
	return e.update("pan", func(d *desired) error {
		step := d.pixelStep()
		d.offsetX -= float64(dx) * step
		d.offsetY -= float64(dy) * step
		return nil
	})
}

// Zoom scales the viewport by Config.ZoomStep per notch, around its center.
// A positive level zooms out, a negative level zooms in.
func (e *Engine) Zoom(level int) error {
	return e.update("zoom", func(d *desired) error {
		d.zoom *= math.Pow(e.cfg.ZoomStep, float64(level))
		return nil
	})
}

// ZoomAt scales the viewport like Zoom but keeps the plane point under pixel
// (x, y) in place.
func (e *Engine) ZoomAt(x, y, level int) error {
	return e.update("zoom", func(d *desired) error {
		before := d.viewport()
		px, py := before.PlaneX(x), before.PlaneY(y)

		d.zoom *= math.Pow(e.cfg.ZoomStep, float64(level))
		step := d.pixelStep()
		d.offsetX = px - step*float64(x-d.width/2)
		d.offsetY = py - step*float64(y-d.height/2)
		return nil
	})
}

// Resize changes the viewport size in pixels, keeping its center and zoom.
func (e *Engine) Resize(width, height int) error {
	return e.update("resize", func(d *desired) error {
		if err := frame.CheckDimensions(width, height); err != nil {
			return err
		}
		d.width, d.height = width, height
		return nil
	})
}
