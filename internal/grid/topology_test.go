package grid

import (
	"testing"

	"github.com/plc-ladder/backend/internal/models"
)

func seg(shape models.SegmentShape, col, row int) models.GridSegment {
	return models.GridSegment{ID: string(shape), Shape: shape, Column: col, Row: row}
}

func TestCanPlaceComponent(t *testing.T) {
	rung := models.Rung{Components: []models.Component{{Position: 3, Width: 2}}}
	if CanPlaceComponent(4, 1, rung) {
		t.Error("column 4 is covered")
	}
	if !CanPlaceComponent(5, 1, rung) {
		t.Error("column 5 should be free")
	}
}

func TestCanPlaceSegment(t *testing.T) {
	tests := []struct {
		name       string
		col, row   int
		shape      models.SegmentShape
		segments   []models.GridSegment
		components []models.Component
		want       bool
	}{
		{
			name:  "empty grid",
			col:   3, row: 1,
			shape: models.ShapeHorizontal,
			want:  true,
		},
		{
			name:       "column under component",
			col:        4, row: 1,
			shape:      models.ShapeVertical,
			components: []models.Component{{Position: 3, Width: 2}},
			want:       false,
		},
		{
			name:     "existing cell is a modification",
			col:      3, row: 1,
			shape:    models.ShapeTee,
			segments: []models.GridSegment{seg(models.ShapeHorizontal, 3, 1), seg(models.ShapeHorizontal, 3, 2)},
			want:     true,
		},
		{
			name:     "horizontal neighbour on another row",
			col:      3, row: 1,
			shape:    models.ShapeTee,
			segments: []models.GridSegment{seg(models.ShapeHorizontal, 3, 2)},
			want:     false,
		},
		{
			name:     "horizontal neighbour on same row",
			col:      3, row: 1,
			shape:    models.ShapeTee,
			segments: []models.GridSegment{seg(models.ShapeHorizontal, 4, 1)},
			want:     true,
		},
		{
			name:     "vertical new segment connects to anything",
			col:      3, row: 1,
			shape:    models.ShapeVertical,
			segments: []models.GridSegment{seg(models.ShapeHorizontal, 3, 2)},
			want:     true,
		},
		{
			name:     "corner-up above connects",
			col:      3, row: 2,
			shape:    models.ShapeTee,
			segments: []models.GridSegment{seg(models.ShapeCornerUp, 3, 1)},
			want:     true,
		},
		{
			name:     "corner-up below does not connect",
			col:      3, row: 1,
			shape:    models.ShapeTee,
			segments: []models.GridSegment{seg(models.ShapeCornerUp, 3, 2)},
			want:     false,
		},
		{
			name:     "corner-down below connects",
			col:      3, row: 1,
			shape:    models.ShapeTee,
			segments: []models.GridSegment{seg(models.ShapeCornerDown, 3, 2)},
			want:     true,
		},
		{
			name:     "corner beside on same row",
			col:      3, row: 1,
			shape:    models.ShapeHorizontal,
			segments: []models.GridSegment{seg(models.ShapeCornerDown, 2, 1)},
			want:     true,
		},
		{
			name:     "tee neighbours are unconditional",
			col:      3, row: 1,
			shape:    models.ShapeCornerUp,
			segments: []models.GridSegment{seg(models.ShapeTee, 3, 2), seg(models.ShapeTee, 4, 1)},
			want:     true,
		},
		{
			name:     "far segments are ignored",
			col:      3, row: 1,
			shape:    models.ShapeTee,
			segments: []models.GridSegment{seg(models.ShapeHorizontal, 5, 3)},
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanPlaceSegment(tt.col, tt.row, tt.shape, tt.segments, tt.components)
			if got != tt.want {
				t.Errorf("CanPlaceSegment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompatible_DiagonalCornerIsPermitted(t *testing.T) {
	if !Compatible(models.ShapeTee, models.ShapeCornerUp, 1, 1) {
		t.Error("diagonal corner neighbour should fall through to permissive default")
	}
}
