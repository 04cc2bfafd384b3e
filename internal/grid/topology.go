package grid

import "github.com/plc-ladder/backend/internal/models"

// CanPlaceComponent reports whether a component of the given width may start
// at column in the rung.
func CanPlaceComponent(column, width int, rung models.Rung) bool {
	return IsPositionFree(column, width, rung.Components, "")
}

// CanPlaceSegment decides whether a wiring segment of the given shape may be
// drawn at (column, row).
//
// Components and segments never share a column. A segment already present at
// the exact cell is being modified and is always accepted. Otherwise every
// neighbour within one column and one row must be compatible.
func CanPlaceSegment(column, row int, shape models.SegmentShape, segments []models.GridSegment, components []models.Component) bool {
	for _, c := range components {
		if c.Covers(column) {
			return false
		}
	}

	for _, s := range segments {
		if s.Column == column && s.Row == row {
			return true
		}
	}

	for _, s := range segments {
		dc := s.Column - column
		dr := s.Row - row
		if abs(dc) > 1 || abs(dr) > 1 {
			continue
		}
		if !Compatible(shape, s.Shape, dc, dr) {
			return false
		}
	}
	return true
}

// Compatible reports whether a new segment shape can sit next to a neighbour
// of shape neighbour, offset by (colDelta, rowDelta) = neighbour - new.
func Compatible(shape, neighbour models.SegmentShape, colDelta, rowDelta int) bool {
	if shape == models.ShapeVertical || neighbour == models.ShapeVertical {
		return true
	}

	if neighbour == models.ShapeHorizontal {
		return rowDelta == 0
	}

	sameRowAdjacent := rowDelta == 0 && abs(colDelta) == 1
	sameColAdjacent := colDelta == 0 && abs(rowDelta) == 1

	if neighbour.IsCorner() {
		if sameRowAdjacent {
			return true
		}
		if sameColAdjacent {
			return (neighbour == models.ShapeCornerUp && rowDelta == -1) ||
				(neighbour == models.ShapeCornerDown && rowDelta == 1)
		}
	}

	// Tees connect on both the through-wire and the branch; everything else
	// is permitted. Only genuine conflicts are rejected, not electrical errors.
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
