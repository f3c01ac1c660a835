package frame

import (
	"errors"
	"time"

	"github.com/gogpu/fracview/internal/escape"
)

// ErrLeased is returned when the compute buffer is already leased.
var ErrLeased = errors.New("frame: compute buffer already leased")

// Pair owns the display and compute buffers. Roles are exchanged by swapping
// pointers; pixel data is never copied between them on swap.
type Pair struct {
	display *Buffer
	compute *Buffer
	tag     uint64
}

// NewPair returns a pair of empty buffers.
func NewPair() *Pair {
	return &Pair{display: &Buffer{}, compute: &Buffer{}}
}

// Display returns the buffer currently shown.
func (p *Pair) Display() *Buffer { return p.display }

// Compute returns the buffer currently computed into.
func (p *Pair) Compute() *Buffer { return p.compute }

// Bump gives b the next version tag.
func (p *Pair) Bump(b *Buffer) {
	p.tag++
	b.Tag = p.tag
}

// TrySwap promotes the compute buffer to display if it has finished a pass
// and is not leased. The new display is no longer fresh and gets a new tag.
func (p *Pair) TrySwap() bool {
	if p.compute.WIP || !p.compute.Fresh {
		return false
	}
	p.display, p.compute = p.compute, p.display
	p.display.Fresh = false
	p.Bump(p.display)
	return true
}

// Lease hands the compute buffer to a batch. While leased the buffer cannot
// be swapped and only the lease holder may write its pixels.
func (p *Pair) Lease() (*Lease, error) {
	if p.compute.WIP {
		return nil, ErrLeased
	}
	p.compute.WIP = true
	p.compute.Fresh = false
	return &Lease{buf: p.compute}, nil
}

// Lease is exclusive write access to the compute buffer for one batch.
type Lease struct {
	buf *Buffer
}

// Pixels returns the slice batch tasks write into. It stays valid after the
// buffer lock is released.
func (l *Lease) Pixels() []uint16 {
	return l.buf.Pixels
}

// Result describes the content a finished batch leaves in the buffer.
type Result struct {
	Viewport escape.Viewport
	Missing  Margins
	Stripes  StripeGrid
	RowTime  time.Duration
}

// Release publishes the batch's result and marks the buffer fresh.
// Requires the buffer lock.
func (l *Lease) Release(r Result) {
	b := l.buf
	b.Viewport = r.Viewport
	b.Missing = r.Missing
	b.Stripes = r.Stripes
	b.RowTime = r.RowTime
	b.Fresh = true
	b.WIP = false
}

// Abort gives the buffer back without publishing anything. Requires the
// buffer lock.
func (l *Lease) Abort() {
	l.buf.Fresh = false
	l.buf.WIP = false
}
