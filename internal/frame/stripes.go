package frame

// StripeFactor is the sub-sampling factor of the progressive refinement on
// both axes.
const StripeFactor = 3

// StripeGrid records which phase cells of a buffer have been computed at
// full resolution. Cell [r][c] is set iff every pixel with y%3 == r and
// x%3 == c holds a computed value for the current render.
type StripeGrid [StripeFactor][StripeFactor]bool

// FullGrid returns a grid with every cell set.
func FullGrid() StripeGrid {
	var g StripeGrid
	for r := range g {
		for c := range g[r] {
			g[r][c] = true
		}
	}
	return g
}

// Complete reports whether all cells are set.
func (g StripeGrid) Complete() bool {
	return g.Count() == StripeFactor*StripeFactor
}

// Count returns the number of set cells.
func (g StripeGrid) Count() int {
	n := 0
	for r := range g {
		for c := range g[r] {
			if g[r][c] {
				n++
			}
		}
	}
	return n
}

// RowStarted reports whether any cell of row r is set.
func (g StripeGrid) RowStarted(r int) bool {
	return g[r][0] || g[r][1] || g[r][2]
}

// RowDone reports whether every cell of row r is set.
func (g StripeGrid) RowDone(r int) bool {
	return g[r][0] && g[r][1] && g[r][2]
}

// AnyRowDone reports whether at least one row is done.
func (g StripeGrid) AnyRowDone() bool {
	for r := range g {
		if g.RowDone(r) {
			return true
		}
	}
	return false
}

// Mark sets cell [r][c].
func (g *StripeGrid) Mark(r, c int) {
	g[r][c] = true
}

// Rotate returns the grid of a buffer whose content moved by (dx, dy)
// pixels: a pixel in column phase c lands in phase (c+dx) mod 3, and likewise
// for rows. Columns rotate first, then rows.
func (g StripeGrid) Rotate(dx, dy int) StripeGrid {
	var cols StripeGrid
	for r := range g {
		for c := range g[r] {
			cols[r][mod3(c+dx)] = g[r][c]
		}
	}
	var out StripeGrid
	for r := range cols {
		out[mod3(r+dy)] = cols[r]
	}
	return out
}

// Cell is the next phase cell a refinement pass computes.
type Cell struct {
	Row int
	Col int

	// Started is true when the row already has other cells set, so the cell
	// must be computed without fill-in to preserve them.
	Started bool
}

// NextCell picks the next cell to refine: the first missing column of the
// first partially computed row, otherwise column 0 of the first row not yet
// started. It returns false when the grid is complete.
func (g StripeGrid) NextCell() (Cell, bool) {
	for r := range g {
		if g.RowStarted(r) && !g.RowDone(r) {
			for c := range g[r] {
				if !g[r][c] {
					return Cell{Row: r, Col: c, Started: true}, true
				}
			}
		}
	}
	for r := range g {
		if !g.RowStarted(r) {
			return Cell{Row: r}, true
		}
	}
	return Cell{}, false
}

func mod3(v int) int {
	return ((v % StripeFactor) + StripeFactor) % StripeFactor
}
