package classroom

import "sort"

const placementPadding = 10

// NextFreePosition finds the top-most, then left-most, free spot for an icon of size w x h.
// The canvas is split into columns as wide as the icon (plus padding); each column is scanned
// top-down for the first vertical gap. The student identified by excludeID is ignored so that
// it can be re-placed. Spots overflowing canvasHeight are skipped unless no spot fits.
func NextFreePosition(students []Student, excludeID string, w, h, canvasWidth, canvasHeight float64) Position {
	if canvasWidth <= 0 {
		return Position{}
	}
	if w <= 0 {
		w = DefaultIconWidth
	}
	if h <= 0 {
		h = DefaultIconHeight
	}

	numCols := int(canvasWidth) / int(w+placementPadding)
	if numCols < 1 {
		numCols = 1
	}
	colWidth := int(canvasWidth) / numCols

	columns := make([][]Student, numCols)
	for _, s := range students {
		if excludeID != "" && s.ID == excludeID {
			continue
		}
		x := s.X
		if x < 0 {
			x = 0
		}
		col := int(x) / colWidth
		if col >= numCols {
			col = numCols - 1
		}
		columns[col] = append(columns[col], s)
	}

	spots := make([]Position, 0, numCols)
	for col, inCol := range columns {
		x := float64(col*colWidth) + (float64(colWidth)-w)/2
		sort.SliceStable(inCol, func(i, j int) bool { return inCol[i].Y < inCol[j].Y })

		curY := 0.0
		for _, s := range inCol {
			if curY+h+placementPadding < s.Y {
				break
			}
			_, sh := s.IconSize()
			if next := s.Y + sh + placementPadding; next > curY {
				curY = next
			}
		}
		spots = append(spots, Position{X: x, Y: curY})
	}

	candidates := spots
	if canvasHeight > 0 {
		fitting := make([]Position, 0, len(spots))
		for _, p := range spots {
			if p.Y+h <= canvasHeight {
				fitting = append(fitting, p)
			}
		}
		if len(fitting) > 0 {
			candidates = fitting
		}
	}

	best := candidates[0]
	for _, p := range candidates[1:] {
		if p.Y < best.Y || (p.Y == best.Y && p.X < best.X) {
			best = p
		}
	}
	return best
}
