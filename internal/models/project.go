// Package models contains domain types for the ladder diagram editor.
package models

import (
	"encoding/json"
	"math"
	"slices"
)

// SegmentShape is the wiring connector drawn in a grid cell.
type SegmentShape string

const (
	ShapeHorizontal SegmentShape = "horizontal"
	ShapeVertical   SegmentShape = "vertical"
	ShapeCornerUp   SegmentShape = "L-up"   // Up and either left or right
	ShapeCornerDown SegmentShape = "L-down" // Down and either left or right
	ShapeTee        SegmentShape = "T"
	ShapeNone       SegmentShape = "none"
)

// IsCorner reports whether the shape is one of the two corner shapes.
func (s SegmentShape) IsCorner() bool {
	return s == ShapeCornerUp || s == ShapeCornerDown
}

// Valid reports whether s is a known shape.
func (s SegmentShape) Valid() bool {
	switch s {
	case ShapeHorizontal, ShapeVertical, ShapeCornerUp, ShapeCornerDown, ShapeTee, ShapeNone:
		return true
	}
	return false
}

// Well-known component type tags.
const (
	TypeContactNO     = "CONTACT_NO"
	TypeContactNC     = "CONTACT_NC"
	TypeCoil          = "COIL"
	TypeTimer         = "TIMER"
	TypeCounterUp     = "COUNTER_UP"
	TypeCounterDown   = "COUNTER_DOWN"
	TypeCompare       = "COMPARE"
	TypeFunctionBlock = "FUNCTION_BLOCK"
)

// Component is a placed ladder element.
type Component struct {
	ID        string         `json:"id,omitempty"`
	Type      string         `json:"type"`
	Position  int            `json:"position"`
	Width     int            `json:"width,omitempty"`
	Variables map[string]any `json:"variables,omitempty"`
	Icon      string         `json:"icon,omitempty"` // Rendering hint only
}

// Span returns the component width, treating unset widths as 1.
func (c Component) Span() int {
	if c.Width < 1 {
		return 1
	}
	return c.Width
}

// End returns the last column occupied by the component, saturating at
// math.MaxInt.
func (c Component) End() int {
	if c.Position > 0 && c.Span()-1 > math.MaxInt-c.Position {
		return math.MaxInt
	}
	return c.Position + c.Span() - 1
}

// Covers reports whether column falls inside the occupied range.
func (c Component) Covers(column int) bool {
	return column >= c.Position && column <= c.End()
}

// UnmarshalJSON accepts fractional positions and rounds them half-up to the
// nearest column.
func (c *Component) UnmarshalJSON(data []byte) error {
	type plain Component
	var raw struct {
		plain
		Position float64 `json:"position"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Component(raw.plain)
	c.Position = int(math.Floor(raw.Position + 0.5))
	return nil
}

// StringVar returns a string variable or "" when absent.
func (c Component) StringVar(key string) string {
	if c.Variables == nil {
		return ""
	}
	s, _ := c.Variables[key].(string)
	return s
}

// GridSegment is a wiring connector in a rung's grid cell.
type GridSegment struct {
	ID       string       `json:"id"`
	Shape    SegmentShape `json:"type"`
	Column   int          `json:"position"`
	Row      int          `json:"row"`
	Mirrored bool         `json:"mirrored,omitempty"` // Corners: left instead of right connection
	Flipped  bool         `json:"flipped,omitempty"`  // Tees: upward instead of downward
}

// Rung is one horizontal logic line between the power rails.
type Rung struct {
	ID         string        `json:"id"`
	Segments   []GridSegment `json:"segments"`
	Components []Component   `json:"components"`
}

// SegmentAt returns the index of the segment at (column, row), or -1.
func (r *Rung) SegmentAt(column, row int) int {
	for i, s := range r.Segments {
		if s.Column == column && s.Row == row {
			return i
		}
	}
	return -1
}

// VerticalLink is a wire connecting two rungs at fixed columns.
// FromRung is never greater than ToRung.
type VerticalLink struct {
	ID           string `json:"id"`
	FromRung     int    `json:"fromRung"`
	ToRung       int    `json:"toRung"`
	FromPosition int    `json:"fromPosition"`
	ToPosition   int    `json:"toPosition"`
}

// SameEndpoints reports whether two links join the same cells.
func (l VerticalLink) SameEndpoints(o VerticalLink) bool {
	return l.FromRung == o.FromRung && l.ToRung == o.ToRung &&
		l.FromPosition == o.FromPosition && l.ToPosition == o.ToPosition
}

// Project is the root aggregate. A valid project always has at least one rung.
type Project struct {
	Name          string         `json:"name"`
	Rungs         []Rung         `json:"rungs"`
	Settings      Settings       `json:"settings"`
	POUs          []POU          `json:"pous,omitempty"`
	VerticalLinks []VerticalLink `json:"verticalLinks,omitempty"`
}

// FindPOU returns the POU with the given id.
func (p *Project) FindPOU(id string) (*POU, bool) {
	for i := range p.POUs {
		if p.POUs[i].ID == id {
			return &p.POUs[i], true
		}
	}
	return nil, false
}

// ComponentCount returns the number of components over all rungs.
func (p *Project) ComponentCount() int {
	n := 0
	for _, r := range p.Rungs {
		n += len(r.Components)
	}
	return n
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := &Project{
		Name:     p.Name,
		Settings: p.Settings.Clone(),
	}
	out.Rungs = cloneRungs(p.Rungs)
	if p.POUs != nil {
		out.POUs = make([]POU, len(p.POUs))
		for i, pou := range p.POUs {
			out.POUs[i] = pou.Clone()
		}
	}
	out.VerticalLinks = slices.Clone(p.VerticalLinks)
	return out
}

func cloneRungs(rungs []Rung) []Rung {
	if rungs == nil {
		return nil
	}
	out := make([]Rung, len(rungs))
	for i, r := range rungs {
		out[i] = Rung{
			ID:         r.ID,
			Segments:   slices.Clone(r.Segments),
			Components: slices.Clone(r.Components),
		}
		for j := range out[i].Components {
			out[i].Components[j].Variables = CloneVariables(r.Components[j].Variables)
		}
	}
	return out
}

// CloneVariables copies a variable map one level deep.
func CloneVariables(vars map[string]any) map[string]any {
	if vars == nil {
		return nil
	}
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
