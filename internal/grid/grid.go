// Package grid converts between pixel space and the discrete rung grid and
// answers placement queries for components and wiring segments.
//
// Every function here is pure: no state, no I/O, and no errors. Rejection is
// always an ordinary boolean result.
package grid

import (
	"math"

	"github.com/plc-ladder/backend/internal/models"
)

const (
	// CellSize is the default width of a grid column in pixels.
	CellSize = models.DefaultGridSize
	// PowerRailWidth is the pixel width of the left power rail.
	PowerRailWidth = 8
	// MinColumn is the first column right of the power rail.
	MinColumn = 1
	// MaxColumn is the last column a component may occupy.
	MaxColumn = 1000
	// MaxWidth is the widest component a rung accepts.
	MaxWidth = 16
	// SearchRadius bounds the nearest-free-column search in each direction.
	SearchRadius = 10
)

// RoundColumn rounds a fractional column half-up to an integer column.
func RoundColumn(x float64) int {
	return int(math.Floor(x + 0.5))
}

// ToGridColumn converts a pixel x coordinate relative to the rung's left edge
// into the column whose left edge is nearest, clamped to MinColumn. It is the
// inverse of ColumnToPixel.
func ToGridColumn(pixelX, railOffset, cellSize float64) int {
	if cellSize <= 0 {
		cellSize = CellSize
	}
	col := RoundColumn((pixelX-railOffset)/cellSize) + 1
	if col < MinColumn {
		return MinColumn
	}
	return col
}

// ColumnToPixel returns the left pixel edge of a column.
func ColumnToPixel(column int, railOffset, cellSize float64) float64 {
	if cellSize <= 0 {
		cellSize = CellSize
	}
	return float64(column-1)*cellSize + railOffset
}

// ValidSpan reports whether a component of width starting at column lies
// inside [MinColumn, MaxColumn] with 1 <= width <= MaxWidth.
func ValidSpan(column, width int) bool {
	return column >= MinColumn && column <= MaxColumn &&
		width >= 1 && width <= MaxWidth &&
		width-1 <= MaxColumn-column
}

// spanEnd returns start+width-1, saturating at math.MaxInt.
func spanEnd(start, width int) int {
	if width < 1 {
		width = 1
	}
	if start > 0 && width-1 > math.MaxInt-start {
		return math.MaxInt
	}
	return start + width - 1
}

// rangesOverlap reports whether [a, a+aw-1] and [b, b+bw-1] intersect.
func rangesOverlap(a, aw, b, bw int) bool {
	return a <= spanEnd(b, bw) && b <= spanEnd(a, aw)
}

// IsPositionFree reports whether no component other than excludeID occupies
// any column in [column, column+width-1].
func IsPositionFree(column, width int, components []models.Component, excludeID string) bool {
	if width < 1 {
		width = 1
	}
	for _, c := range components {
		if excludeID != "" && c.ID == excludeID {
			continue
		}
		if rangesOverlap(column, width, c.Position, c.Span()) {
			return false
		}
	}
	return true
}

// NearestFreePosition returns column if it is free, otherwise the closest free
// column found by checking right then left at increasing offsets up to
// SearchRadius. Columns left of MinColumn are never returned from the search.
// When nothing is free within the radius the input column is returned
// unchanged and the caller must still reject the placement.
func NearestFreePosition(column, width int, components []models.Component, excludeID string) int {
	if IsPositionFree(column, width, components, excludeID) {
		return column
	}
	for offset := 1; offset <= SearchRadius; offset++ {
		if right := column + offset; IsPositionFree(right, width, components, excludeID) {
			return right
		}
		if left := column - offset; left >= MinColumn && IsPositionFree(left, width, components, excludeID) {
			return left
		}
	}
	return column
}
