package grid

import (
	"math"
	"testing"

	"github.com/plc-ladder/backend/internal/models"
)

func comps(cs ...models.Component) []models.Component { return cs }

func TestToGridColumn(t *testing.T) {
	tests := []struct {
		name   string
		pixelX float64
		want   int
	}{
		{"left of rail clamps to first column", -30, 1},
		{"zero clamps", 0, 1},
		{"first column left edge", 8, 1},
		{"exact cell", 8 + 3*40, 4},
		{"rounds down below half", 8 + 3*40 + 19, 4},
		{"rounds up at half", 8 + 3*40 + 20, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToGridColumn(tt.pixelX, PowerRailWidth, CellSize); got != tt.want {
				t.Errorf("ToGridColumn(%v) = %d, want %d", tt.pixelX, got, tt.want)
			}
		})
	}
}

func TestColumnToPixel(t *testing.T) {
	if got := ColumnToPixel(1, PowerRailWidth, CellSize); got != 8 {
		t.Errorf("expected column 1 at x=8, got %v", got)
	}
	if got := ColumnToPixel(4, 0, 0); got != 120 {
		t.Errorf("expected default cell size to apply, got %v", got)
	}
}

func TestColumnPixelRoundTrip(t *testing.T) {
	for c := MinColumn; c <= 20; c++ {
		x := ColumnToPixel(c, PowerRailWidth, CellSize)
		if got := ToGridColumn(x, PowerRailWidth, CellSize); got != c {
			t.Errorf("ToGridColumn(ColumnToPixel(%d)) = %d", c, got)
		}
		if got := ToGridColumn(x+CellSize/2-1, PowerRailWidth, CellSize); got != c {
			t.Errorf("x just before the midpoint of column %d mapped to %d", c, got)
		}
	}
}

func TestRoundColumn(t *testing.T) {
	cases := map[float64]int{4.4: 4, 4.5: 5, 5.0: 5, 0.49: 0, -0.5: 0}
	for in, want := range cases {
		if got := RoundColumn(in); got != want {
			t.Errorf("RoundColumn(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestIsPositionFree(t *testing.T) {
	rung := comps(
		models.Component{ID: "a", Position: 2},
		models.Component{ID: "b", Position: 5, Width: 3}, // occupies 5..7
	)

	t.Run("empty rung is free", func(t *testing.T) {
		if !IsPositionFree(1, 1, nil, "") {
			t.Error("expected free")
		}
	})

	t.Run("occupied single column", func(t *testing.T) {
		if IsPositionFree(2, 1, rung, "") {
			t.Error("column 2 should be taken")
		}
	})

	t.Run("inside wide component", func(t *testing.T) {
		if IsPositionFree(7, 1, rung, "") {
			t.Error("column 7 is covered by b")
		}
	})

	t.Run("wide candidate overlapping right neighbour", func(t *testing.T) {
		if IsPositionFree(3, 3, rung, "") {
			t.Error("3..5 intersects b at 5")
		}
		if !IsPositionFree(3, 2, rung, "") {
			t.Error("3..4 should be free")
		}
	})

	t.Run("excluded component is ignored", func(t *testing.T) {
		if !IsPositionFree(6, 1, rung, "b") {
			t.Error("excluding b should free column 6")
		}
	})
}

func TestNearestFreePosition(t *testing.T) {
	t.Run("free column returned as is", func(t *testing.T) {
		if got := NearestFreePosition(4, 1, comps(models.Component{Position: 2}), ""); got != 4 {
			t.Errorf("got %d", got)
		}
	})

	t.Run("prefers right on tie", func(t *testing.T) {
		got := NearestFreePosition(5, 1, comps(models.Component{Position: 5}), "")
		if got != 6 {
			t.Errorf("expected 6, got %d", got)
		}
	})

	t.Run("falls back left when right is blocked", func(t *testing.T) {
		got := NearestFreePosition(5, 1, comps(
			models.Component{Position: 5},
			models.Component{Position: 6},
		), "")
		if got != 4 {
			t.Errorf("expected 4, got %d", got)
		}
	})

	t.Run("never searches left of the rail", func(t *testing.T) {
		got := NearestFreePosition(1, 1, comps(
			models.Component{Position: 1},
			models.Component{Position: 2},
		), "")
		if got != 3 {
			t.Errorf("expected 3, got %d", got)
		}
	})

	t.Run("nothing within radius returns input", func(t *testing.T) {
		var full []models.Component
		for c := 1; c <= 40; c++ {
			full = append(full, models.Component{Position: c})
		}
		if got := NearestFreePosition(15, 1, full, ""); got != 15 {
			t.Errorf("expected unchanged 15, got %d", got)
		}
	})
}

func TestValidSpan(t *testing.T) {
	tests := []struct {
		column, width int
		want          bool
	}{
		{1, 1, true},
		{MaxColumn, 1, true},
		{MaxColumn - MaxWidth + 1, MaxWidth, true},
		{0, 1, false},
		{MaxColumn + 1, 1, false},
		{MaxColumn, 2, false},
		{1, 0, false},
		{1, MaxWidth + 1, false},
		{5, math.MaxInt, false},
		{math.MaxInt, 1, false},
	}
	for _, tt := range tests {
		if got := ValidSpan(tt.column, tt.width); got != tt.want {
			t.Errorf("ValidSpan(%d, %d) = %v, want %v", tt.column, tt.width, got, tt.want)
		}
	}
}

func TestIsPositionFree_HugeWidth(t *testing.T) {
	rung := comps(models.Component{ID: "a", Position: 10})

	if IsPositionFree(5, math.MaxInt, rung, "") {
		t.Error("a span running to the end of the int range must cover column 10")
	}
	if IsPositionFree(10, 1, comps(models.Component{ID: "w", Position: 5, Width: math.MaxInt}), "") {
		t.Error("existing component with huge width must cover column 10")
	}
	if !IsPositionFree(math.MaxInt, 1, rung, "") {
		t.Error("the last int column does not touch column 10")
	}
}
