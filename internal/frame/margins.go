package frame

// Margins counts the stale pixel columns and rows along each edge of a
// buffer. Pixels inside the margins hold content computed for the buffer's
// viewport; pixels in them do not.
//
// A buffer's margins are valid while Left+Right < width and
// Top+Bottom < height. Anything else means the whole buffer is stale.
type Margins struct {
	Left   int
	Right  int
	Top    int
	Bottom int
}

// Invalidated returns the canonical fully stale margins for a buffer of the
// given width.
func Invalidated(width int) Margins {
	return Margins{Left: width}
}

// Zero reports whether no edge is stale.
func (m Margins) Zero() bool {
	return m == Margins{}
}

// Overflows reports whether the margins leave no valid interior in a
// width×height buffer.
func (m Margins) Overflows(width, height int) bool {
	return m.Left+m.Right >= width || m.Top+m.Bottom >= height
}

// Shift returns the margins after the content moved by (sx, sy) pixels.
//
// The edge the content moves away from is exposed and grows by the shift.
// The stale strip on the opposite edge slides out of the buffer with the
// content and shrinks by the same amount.
func (m Margins) Shift(sx, sy int) Margins {
	switch {
	case sx > 0:
		m.Left += sx
		m.Right = max(0, m.Right-sx)
	case sx < 0:
		m.Right -= sx
		m.Left = max(0, m.Left+sx)
	}
	switch {
	case sy > 0:
		m.Top += sy
		m.Bottom = max(0, m.Bottom-sy)
	case sy < 0:
		m.Bottom -= sy
		m.Top = max(0, m.Top+sy)
	}
	return m
}

// Area returns the number of stale pixels in a width×height buffer.
func (m Margins) Area(width, height int) int {
	if m.Overflows(width, height) {
		return width * height
	}
	interior := (width - m.Left - m.Right) * (height - m.Top - m.Bottom)
	return width*height - interior
}
