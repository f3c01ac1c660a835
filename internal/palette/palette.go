// Package palette maps iteration counts to display colors using a lookup
// table.
//
// The table is built once per iteration limit, so converting a frame costs one
// array lookup per pixel instead of evaluating the color ramp.
package palette

import "math"

// ramp is the number of entries with a non-black color.
const ramp = 259

// Palette is an immutable iteration → RGBA table with one entry per possible
// iteration count in [0, maxIters].
type Palette struct {
	entries [][4]uint8
}

// New builds the table for counts up to maxIters. Points that never escaped
// (count == maxIters) are black.
func New(maxIters int) *Palette {
	maxIters = max(maxIters, 0)
	p := &Palette{entries: make([][4]uint8, maxIters+1)}
	for i := range p.entries {
		if i == maxIters {
			p.entries[i] = [4]uint8{0, 0, 0, 255}
			continue
		}
		p.entries[i] = entry(i)
	}
	return p
}

// entry computes the color for count i: a dark blue ramp for the first 20
// counts, then a blend toward green, then black.
func entry(i int) [4]uint8 {
	switch {
	case i < 20:
		return [4]uint8{clamp(float64((i + 15) * 2)), clamp(float64((i + 15) * 3)), clamp(float64((i + 15) * 7)), 255}
	case i < ramp:
		g := float64((i+15)*3) - float64(i-20)*0.65
		return [4]uint8{68, clamp(g), clamp(float64(ramp - 1 - i)), 255}
	default:
		return [4]uint8{0, 0, 0, 255}
	}
}

func clamp(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	//nolint:gosec // G115: v is clamped to [0,255] range
	return uint8(math.Round(v))
}

// Len returns the number of table entries (maxIters+1).
func (p *Palette) Len() int {
	return len(p.entries)
}

// At returns the RGBA color for count n. Counts beyond the table are black.
func (p *Palette) At(n uint16) [4]uint8 {
	if int(n) >= len(p.entries) {
		return [4]uint8{0, 0, 0, 255}
	}
	return p.entries[n]
}

// Fill converts src counts into RGBA bytes in dst, four bytes per count.
// It converts min(len(src), len(dst)/4) pixels and returns that count.
func (p *Palette) Fill(dst []byte, src []uint16) int {
	n := min(len(src), len(dst)/4)
	for i, c := range src[:n] {
		e := p.At(c)
		copy(dst[i*4:i*4+4], e[:])
	}
	return n
}
