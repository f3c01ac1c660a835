// Package frame holds the iteration-count buffers shared by the pan
// coordinator, the compute scheduler and the display readout.
//
// Two Buffers form a Pair. One is displayed and panned in place; the other is
// computed into and swapped in when finished. None of the types here lock:
// every method requires the caller to hold the engine's buffer lock.
package frame

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/fracview/internal/escape"
)

const (
	// MaxDimension is the largest accepted width or height.
	MaxDimension = 1 << 14

	// MaxPixels is the largest accepted width*height.
	MaxPixels = 1 << 26
)

var (
	// ErrInvalidDimensions is returned for a non-positive or oversized width
	// or height.
	ErrInvalidDimensions = errors.New("frame: invalid dimensions")

	// ErrBufferTooLarge is returned when width*height exceeds MaxPixels.
	ErrBufferTooLarge = errors.New("frame: buffer too large")
)

// CheckDimensions validates a buffer size.
func CheckDimensions(width, height int) error {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if width*height > MaxPixels {
		return fmt.Errorf("%w: %dx%d", ErrBufferTooLarge, width, height)
	}
	return nil
}

// Buffer is one iteration-count field together with what is known about its
// content.
type Buffer struct {
	// Pixels is the row-major field, Viewport.Width*Viewport.Height entries.
	Pixels []uint16

	// Viewport is the viewport the content was computed for.
	Viewport escape.Viewport

	// Tag is a version number, bumped on swap and on pan.
	Tag uint64

	// Missing holds the stale edges.
	Missing Margins

	// Stripes holds the refinement progress.
	Stripes StripeGrid

	// WIP is set while a batch writes into Pixels.
	WIP bool

	// Fresh is set when a compute pass has finished and the buffer is
	// eligible to become the display.
	Fresh bool

	// RowTime is the wall time of the last full-viewport pass.
	RowTime time.Duration
}

// Empty reports whether the buffer holds no pixels.
func (b *Buffer) Empty() bool {
	return len(b.Pixels) == 0 || b.Viewport.Pixels() == 0
}

// Realloc sizes the buffer for a width×height field. Existing storage is
// reused when large enough; the content is undefined afterwards and the
// buffer is marked fully stale.
func (b *Buffer) Realloc(width, height int) error {
	if err := CheckDimensions(width, height); err != nil {
		return err
	}
	n := width * height
	if cap(b.Pixels) >= n {
		b.Pixels = b.Pixels[:n]
	} else {
		b.Pixels = make([]uint16, n)
	}
	b.Viewport.Width = width
	b.Viewport.Height = height
	b.Missing = Invalidated(width)
	b.Stripes = StripeGrid{}
	return nil
}

// CopyFrom makes b a copy of src's content and metadata. Tag, WIP and Fresh
// are left alone.
func (b *Buffer) CopyFrom(src *Buffer) error {
	if err := b.Realloc(src.Viewport.Width, src.Viewport.Height); err != nil {
		return err
	}
	copy(b.Pixels, src.Pixels)
	b.Viewport = src.Viewport
	b.Missing = src.Missing
	b.Stripes = src.Stripes
	b.RowTime = src.RowTime
	return nil
}

// Invalid reports whether no pixel of the buffer can be reused.
func (b *Buffer) Invalid() bool {
	return b.Missing.Overflows(b.Viewport.Width, b.Viewport.Height)
}

// Pan moves the content by (sx, sy) pixels and updates the margins and the
// stripe grid to match. When the shift leaves no valid interior the content
// is not moved and the margins are set to Invalidated.
func (b *Buffer) Pan(sx, sy int) {
	w, h := b.Viewport.Width, b.Viewport.Height
	if sx == 0 && sy == 0 {
		return
	}
	if abs(sx) >= w || abs(sy) >= h {
		b.Missing = Invalidated(w)
		return
	}
	b.Missing = b.Missing.Shift(sx, sy)
	if b.Missing.Overflows(w, h) {
		b.Missing = Invalidated(w)
		return
	}
	shiftPixels(b.Pixels, w, h, sx, sy)
	b.Stripes = b.Stripes.Rotate(sx, sy)
}

// shiftPixels moves pixel (x, y) to (x+sx, y+sy) in place. Destination rows
// are walked away from the source rows so no source row is overwritten
// before it is read; copy handles the overlap within one row.
func shiftPixels(px []uint16, w, h, sx, sy int) {
	n := w - abs(sx)
	srcX, dstX := max(-sx, 0), max(sx, 0)

	move := func(y int) {
		src := (y - sy) * w
		dst := y * w
		copy(px[dst+dstX:dst+dstX+n], px[src+srcX:src+srcX+n])
	}

	if sy > 0 {
		for y := h - 1; y >= sy; y-- {
			move(y)
		}
		return
	}
	for y := 0; y < h+sy; y++ {
		move(y)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
