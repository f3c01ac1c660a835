// Package escape computes Mandelbrot escape-time iteration counts for
// rectangular pixel regions.
//
// A Region selects rows and up to two disjoint column spans of a row-major
// iteration buffer, optionally sub-sampled by a striping factor. Compute is a
// pure function of its arguments: it has no shared state, never fails, and
// writes only the pixels its Region addresses, so any number of goroutines may
// call it concurrently on disjoint regions of the same buffer.
package escape

// Bound is the per-axis escape limit. A point escapes as soon as either
// component of the iterate leaves the open interval (-Bound, Bound).
//
// This is not the |z|² ≥ 4 test. Reference images depend on the per-axis
// form, so it must not be changed on its own.
const Bound = 4.0

// Viewport maps buffer pixels onto the complex plane.
//
// Pixel (px, py) maps to
//
//	x = CenterX + PixelStep*(px - Width/2)
//	y = CenterY + PixelStep*(py - Height/2)
//
// with integer division, so odd dimensions put the extra pixel on the
// right/bottom side of the center.
type Viewport struct {
	Width     int
	Height    int
	PixelStep float64
	CenterX   float64
	CenterY   float64
}

// Pixels returns Width*Height, or 0 for degenerate dimensions.
func (v Viewport) Pixels() int {
	if v.Width <= 0 || v.Height <= 0 {
		return 0
	}
	return v.Width * v.Height
}

// SameGeometry reports whether v and o share dimensions and pixel step,
// i.e. whether pixel content computed for one is reusable for the other
// after an integer shift.
func (v Viewport) SameGeometry(o Viewport) bool {
	return v.Width == o.Width && v.Height == o.Height && v.PixelStep == o.PixelStep
}

// PlaneX returns the real coordinate of pixel column px.
func (v Viewport) PlaneX(px int) float64 {
	return v.CenterX + v.PixelStep*float64(px-v.Width/2)
}

// PlaneY returns the imaginary coordinate of pixel row py.
func (v Viewport) PlaneY(py int) float64 {
	return v.CenterY + v.PixelStep*float64(py-v.Height/2)
}

// Span is a half-open coordinate range [Start, End).
type Span struct {
	Start int
	End   int
}

// Len returns the number of coordinates in the span (0 if empty).
func (s Span) Len() int {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Empty reports whether the span covers no coordinates.
func (s Span) Empty() bool {
	return s.End <= s.Start
}

// clip restricts the span to [0, limit).
func (s Span) clip(limit int) Span {
	s.Start = max(s.Start, 0)
	s.End = min(s.End, limit)
	return s
}

// Stripe sub-samples one axis of a region.
//
// With Factor > 1 only coordinates congruent to Phase modulo Factor are
// computed. FillIn copies each computed value into the Factor-1 following
// coordinates on the same axis, producing a blocky preview.
type Stripe struct {
	Factor int
	Phase  int
	FillIn bool
}

// step returns the effective scan step (at least 1).
func (s Stripe) step() int {
	if s.Factor < 1 {
		return 1
	}
	return s.Factor
}

// Align returns the first coordinate >= start that lies on the stripe's
// phase. Phases are absolute: they refer to buffer coordinates, not to
// offsets within the region.
func (s Stripe) Align(start int) int {
	f := s.step()
	if f == 1 {
		return start
	}
	phase := ((s.Phase % f) + f) % f
	rem := ((start % f) + f) % f
	d := phase - rem
	if d < 0 {
		d += f
	}
	return start + d
}

// Region selects the pixels a Compute call fills.
//
// Rows and Cols are always used. Cols2, when non-empty, is a second column
// span sharing the same rows; the scan jumps from Cols.End straight to
// Cols2.Start. Cols2 must not overlap Cols.
type Region struct {
	Rows  Span
	Cols  Span
	Cols2 Span
	H     Stripe
	V     Stripe
}

// Full returns the region covering every pixel of v at full resolution.
func Full(v Viewport) Region {
	return Region{
		Rows: Span{0, v.Height},
		Cols: Span{0, v.Width},
	}
}

// Iterate runs the escape-time loop for the plane point (x, y) and returns
// the number of iterations performed, at most maxIters.
func Iterate(x, y float64, maxIters int) uint16 {
	var cr, ci float64
	n := 0
	for cr < Bound && cr > -Bound && ci < Bound && ci > -Bound && n < maxIters {
		n++
		cr, ci = cr*cr-ci*ci+x, 2*cr*ci+y
	}
	return uint16(n) //nolint:gosec // maxIters is validated to fit uint16
}

// Compute writes iteration counts into dst for every pixel r selects.
//
// dst is a row-major buffer of v.Width*v.Height entries. Regions are clipped
// to the buffer; a buffer shorter than v.Pixels() is left untouched.
func Compute(dst []uint16, maxIters int, v Viewport, r Region) {
	w, h := v.Width, v.Height
	if w <= 0 || h <= 0 || len(dst) < w*h {
		return
	}

	rows := r.Rows.clip(h)
	spans := make([]Span, 0, 2)
	if c := r.Cols.clip(w); !c.Empty() {
		spans = append(spans, c)
	}
	if c := r.Cols2.clip(w); !c.Empty() {
		spans = append(spans, c)
	}
	if rows.Empty() || len(spans) == 0 {
		return
	}

	hStep, vStep := r.H.step(), r.V.step()
	hFill := r.H.FillIn && hStep > 1
	vFill := r.V.FillIn && vStep > 1

	// First phase-aligned column of each span, computed once.
	var first [2]int
	for i, s := range spans {
		first[i] = r.H.Align(s.Start)
	}

	for y := r.V.Align(rows.Start); y < rows.End; y += vStep {
		ci := v.PlaneY(y)
		row := dst[y*w : (y+1)*w]

		for i, s := range spans {
			for x := first[i]; x < s.End; x += hStep {
				n := Iterate(v.PlaneX(x), ci, maxIters)
				row[x] = n
				if hFill {
					for k := x + 1; k < x+hStep && k < s.End; k++ {
						row[k] = n
					}
				}
			}
		}

		if !vFill {
			continue
		}
		for k := y + 1; k < y+vStep && k < rows.End; k++ {
			next := dst[k*w : (k+1)*w]
			for i, s := range spans {
				if first[i] >= s.End {
					continue
				}
				if hStep == 1 || hFill {
					// The horizontal run is contiguous: one bulk copy.
					copy(next[first[i]:s.End], row[first[i]:s.End])
					continue
				}
				for x := first[i]; x < s.End; x += hStep {
					next[x] = row[x]
				}
			}
		}
	}
}
