package parallel

import "github.com/gogpu/fracview/internal/escape"

// Bands splits rows into at most n contiguous, non-empty bands covering the
// whole span. Every band except the last has a height that is a multiple of
// align, so striped tasks with vertical fill-in never leave a gap at a band
// boundary. The last band may be shorter, like an edge tile.
//
// Returns nil for an empty span.
func Bands(rows escape.Span, n, align int) []escape.Span {
	total := rows.Len()
	if total == 0 {
		return nil
	}
	n = max(n, 1)
	align = max(align, 1)

	size := (total + n - 1) / n
	size = (size + align - 1) / align * align

	bands := make([]escape.Span, 0, (total+size-1)/size)
	for start := rows.Start; start < rows.End; start += size {
		bands = append(bands, escape.Span{Start: start, End: min(start+size, rows.End)})
	}
	return bands
}

// Split divides a total task budget between weighted parts in proportion to
// their weights. Every part with a positive weight gets at least one task;
// parts with zero weight get none.
func Split(budget int, weights ...int) []int {
	out := make([]int, len(weights))
	sum, nonzero := 0, 0
	for _, w := range weights {
		if w > 0 {
			sum += w
			nonzero++
		}
	}
	if sum == 0 {
		return out
	}
	budget = max(budget, nonzero)

	given := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		out[i] = max(1, budget*w/sum)
		given += out[i]
	}
	// Hand any rounding remainder to the heaviest part.
	if given < budget {
		heaviest := 0
		for i, w := range weights {
			if w > weights[heaviest] {
				heaviest = i
			}
		}
		out[heaviest] += budget - given
	}
	// The one-task minimum can overshoot; take back from the largest parts.
	for given > budget {
		largest := 0
		for i := range out {
			if out[i] > out[largest] {
				largest = i
			}
		}
		if out[largest] <= 1 {
			break
		}
		out[largest]--
		given--
	}
	return out
}
