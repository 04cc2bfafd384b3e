// Package ladder holds the edit reducer and the vertical link builder.
//
// Reduce is the only way a project changes. Every action either yields a new
// project value or returns the input pointer untouched; partial application
// is never observable. Unchanged rungs, POUs and settings are shared between
// successive values, so nothing reachable from a returned project may be
// mutated in place.
package ladder

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/plc-ladder/backend/internal/grid"
	"github.com/plc-ladder/backend/internal/models"
	"github.com/plc-ladder/backend/internal/validation"
)

// Rejection reasons returned by Apply.
var (
	ErrNoRungs          = errors.New("project has no rungs")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrInvalidColumn    = errors.New("column left of the power rail")
	ErrPositionOccupied = errors.New("position occupied")
	ErrLastRung         = errors.New("cannot delete the last rung")
	ErrInvalidShape     = errors.New("invalid segment shape")
	ErrSegmentConflict  = errors.New("segment conflicts with its neighbours")
	ErrNotFound         = errors.New("not found")
	ErrDuplicateLink    = errors.New("vertical link already exists")
	ErrInvalidPOU       = errors.New("invalid POU")
	ErrUnknownPOU       = errors.New("unknown POU")
	ErrNotInstantiable  = errors.New("POU cannot be instantiated")
	ErrPOUInUse         = errors.New("POU is referenced by a component")
	ErrNoChange         = errors.New("action changes nothing")
)

// POUIDVar is the component variable naming the POU a function block
// instantiates.
const POUIDVar = "pouId"

// Reduce applies a to p and returns the resulting project. A rejected action
// returns p itself.
func Reduce(p *models.Project, a Action) *models.Project {
	next, _ := Apply(p, a)
	return next
}

// Apply is Reduce with the rejection reason. On rejection the returned
// project is p and the error matches one of the Err values with errors.Is.
func Apply(p *models.Project, a Action) (*models.Project, error) {
	if a == nil {
		return p, fmt.Errorf("%w: nil action", ErrNoChange)
	}
	if a.Type() != TypeLoadProject && (p == nil || len(p.Rungs) == 0) {
		return p, ErrNoRungs
	}
	next, err := a.apply(p)
	if err != nil {
		return p, err
	}
	return next, nil
}

// NewProject returns a project with one blank rung and default settings.
func NewProject(name string) *models.Project {
	return &models.Project{
		Name:     name,
		Rungs:    []models.Rung{BlankRung()},
		Settings: models.DefaultSettings(name),
	}
}

// BlankRung returns an empty rung with a fresh id.
func BlankRung() models.Rung {
	return models.Rung{
		ID:         uuid.New().String(),
		Segments:   []models.GridSegment{},
		Components: []models.Component{},
	}
}

func (a AddComponent) apply(p *models.Project) (*models.Project, error) {
	if !inRange(a.RungIndex, len(p.Rungs)) {
		return p, fmt.Errorf("%w: rung %d", ErrIndexOutOfRange, a.RungIndex)
	}
	c := a.Component
	c.Width = c.Span()
	if !grid.ValidSpan(c.Position, c.Width) {
		return p, fmt.Errorf("%w: %d (width %d)", ErrInvalidColumn, c.Position, c.Width)
	}
	if c.Type == models.TypeFunctionBlock {
		if err := checkInstance(p, c); err != nil {
			return p, err
		}
	}

	rung := p.Rungs[a.RungIndex]
	if !grid.CanPlaceComponent(c.Position, c.Width, rung) {
		return p, fmt.Errorf("%w: column %d", ErrPositionOccupied, c.Position)
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.Variables = models.CloneVariables(c.Variables)

	rung.Components = sortedWith(rung.Components, c)
	return withRung(p, a.RungIndex, rung), nil
}

func (a MoveComponent) apply(p *models.Project) (*models.Project, error) {
	if !inRange(a.FromRung, len(p.Rungs)) || !inRange(a.ToRung, len(p.Rungs)) {
		return p, fmt.Errorf("%w: rung %d -> %d", ErrIndexOutOfRange, a.FromRung, a.ToRung)
	}
	src := p.Rungs[a.FromRung]
	if !inRange(a.FromIndex, len(src.Components)) {
		return p, fmt.Errorf("%w: component %d", ErrIndexOutOfRange, a.FromIndex)
	}
	col := grid.RoundColumn(a.ToColumn)
	moving := src.Components[a.FromIndex]
	if !grid.ValidSpan(col, moving.Span()) {
		return p, fmt.Errorf("%w: %d (width %d)", ErrInvalidColumn, col, moving.Span())
	}
	if a.FromRung == a.ToRung && moving.Position == col {
		return p, ErrNoChange
	}
	remaining := without(src.Components, a.FromIndex)

	destComponents := remaining
	if a.ToRung != a.FromRung {
		destComponents = p.Rungs[a.ToRung].Components
	}
	if !grid.IsPositionFree(col, moving.Span(), destComponents, "") {
		return p, fmt.Errorf("%w: column %d", ErrPositionOccupied, col)
	}

	moving.Position = col
	rungs := append([]models.Rung(nil), p.Rungs...)
	src.Components = remaining
	rungs[a.FromRung] = src
	dest := rungs[a.ToRung]
	dest.Components = sortedWith(destComponents, moving)
	rungs[a.ToRung] = dest
	return withRungs(p, rungs), nil
}

func (a DeleteComponent) apply(p *models.Project) (*models.Project, error) {
	if !inRange(a.RungIndex, len(p.Rungs)) {
		return p, fmt.Errorf("%w: rung %d", ErrIndexOutOfRange, a.RungIndex)
	}
	rung := p.Rungs[a.RungIndex]
	if !inRange(a.ComponentIndex, len(rung.Components)) {
		return p, fmt.Errorf("%w: component %d", ErrIndexOutOfRange, a.ComponentIndex)
	}
	rung.Components = without(rung.Components, a.ComponentIndex)
	return withRung(p, a.RungIndex, rung), nil
}

func (a UpdateComponent) apply(p *models.Project) (*models.Project, error) {
	if !inRange(a.RungIndex, len(p.Rungs)) {
		return p, fmt.Errorf("%w: rung %d", ErrIndexOutOfRange, a.RungIndex)
	}
	rung := p.Rungs[a.RungIndex]
	if !inRange(a.ComponentIndex, len(rung.Components)) {
		return p, fmt.Errorf("%w: component %d", ErrIndexOutOfRange, a.ComponentIndex)
	}
	c := rung.Components[a.ComponentIndex]
	if reflect.DeepEqual(c.Variables, a.Variables) {
		return p, ErrNoChange
	}
	c.Variables = models.CloneVariables(a.Variables)
	if c.Type == models.TypeFunctionBlock {
		if err := checkInstance(p, c); err != nil {
			return p, err
		}
	}

	components := append([]models.Component(nil), rung.Components...)
	components[a.ComponentIndex] = c
	rung.Components = components
	return withRung(p, a.RungIndex, rung), nil
}

func (a AddRung) apply(p *models.Project) (*models.Project, error) {
	rung := BlankRung()
	if a.Rung != nil {
		var err error
		if rung, err = normalizeRung(*a.Rung); err != nil {
			return p, err
		}
	}
	rungs := make([]models.Rung, len(p.Rungs), len(p.Rungs)+1)
	copy(rungs, p.Rungs)
	return withRungs(p, append(rungs, rung)), nil
}

func (a DeleteRung) apply(p *models.Project) (*models.Project, error) {
	if !inRange(a.RungIndex, len(p.Rungs)) {
		return p, fmt.Errorf("%w: rung %d", ErrIndexOutOfRange, a.RungIndex)
	}
	if len(p.Rungs) <= 1 {
		return p, ErrLastRung
	}
	rungs := make([]models.Rung, 0, len(p.Rungs)-1)
	rungs = append(rungs, p.Rungs[:a.RungIndex]...)
	rungs = append(rungs, p.Rungs[a.RungIndex+1:]...)
	out := withRungs(p, rungs)

	if len(p.VerticalLinks) > 0 {
		links := make([]models.VerticalLink, 0, len(p.VerticalLinks))
		for _, l := range p.VerticalLinks {
			if l.FromRung == a.RungIndex || l.ToRung == a.RungIndex {
				continue
			}
			if l.FromRung > a.RungIndex {
				l.FromRung--
			}
			if l.ToRung > a.RungIndex {
				l.ToRung--
			}
			links = append(links, l)
		}
		out.VerticalLinks = links
	}
	return out, nil
}

func (a UpdateSettings) apply(p *models.Project) (*models.Project, error) {
	settings := a.Settings.Clone()
	if settings == nil {
		settings = models.Settings{}
	}
	name := p.Name
	if n := settings.Name(); n != "" {
		name = n
	}
	if name == p.Name && reflect.DeepEqual(settings, p.Settings) {
		return p, ErrNoChange
	}
	out := shallow(p)
	out.Settings = settings
	out.Name = name
	return out, nil
}

func (a LoadProject) apply(p *models.Project) (*models.Project, error) {
	in := a.Project
	if in == nil || len(in.Rungs) == 0 {
		return p, ErrNoRungs
	}

	out := &models.Project{Name: in.Name}
	out.Rungs = make([]models.Rung, len(in.Rungs))
	for i, r := range in.Rungs {
		nr, err := normalizeRung(r)
		if err != nil {
			return p, fmt.Errorf("rung %d: %w", i, err)
		}
		out.Rungs[i] = nr
	}

	var current models.Settings
	if p != nil {
		current = p.Settings
	}
	out.Settings = current.Merge(in.Settings)
	if out.Name == "" {
		out.Name = out.Settings.Name()
	}

	for _, pou := range in.POUs {
		pou = pou.Clone()
		if pou.ID == "" {
			pou.ID = uuid.New().String()
		}
		if err := checkPOU(out, pou); err != nil {
			return p, err
		}
		out.POUs = append(out.POUs, pou)
	}

	for _, l := range in.VerticalLinks {
		l, err := checkLink(out, l)
		if err != nil {
			return p, err
		}
		out.VerticalLinks = append(out.VerticalLinks, l)
	}
	return out, nil
}

func (a PlaceSegment) apply(p *models.Project) (*models.Project, error) {
	if !inRange(a.RungIndex, len(p.Rungs)) {
		return p, fmt.Errorf("%w: rung %d", ErrIndexOutOfRange, a.RungIndex)
	}
	if !a.Shape.Valid() {
		return p, fmt.Errorf("%w: %q", ErrInvalidShape, a.Shape)
	}
	if a.Column < grid.MinColumn || a.Column > grid.MaxColumn || a.Row < 0 {
		return p, fmt.Errorf("%w: (%d, %d)", ErrInvalidColumn, a.Column, a.Row)
	}

	rung := p.Rungs[a.RungIndex]
	idx := rung.SegmentAt(a.Column, a.Row)

	if a.Shape == models.ShapeNone {
		if idx < 0 {
			return p, ErrNoChange
		}
		rung.Segments = withoutSegment(rung.Segments, idx)
		return withRung(p, a.RungIndex, rung), nil
	}

	if !grid.CanPlaceSegment(a.Column, a.Row, a.Shape, rung.Segments, rung.Components) {
		return p, fmt.Errorf("%w: %s at (%d, %d)", ErrSegmentConflict, a.Shape, a.Column, a.Row)
	}

	segments := append([]models.GridSegment(nil), rung.Segments...)
	if idx >= 0 {
		if segments[idx].Shape == a.Shape {
			return p, ErrNoChange
		}
		segments[idx].Shape = a.Shape
	} else {
		segments = append(segments, models.GridSegment{
			ID:     uuid.New().String(),
			Shape:  a.Shape,
			Column: a.Column,
			Row:    a.Row,
		})
	}
	rung.Segments = segments
	return withRung(p, a.RungIndex, rung), nil
}

func (a FlipSegment) apply(p *models.Project) (*models.Project, error) {
	if !inRange(a.RungIndex, len(p.Rungs)) {
		return p, fmt.Errorf("%w: rung %d", ErrIndexOutOfRange, a.RungIndex)
	}
	rung := p.Rungs[a.RungIndex]
	idx := -1
	for i, s := range rung.Segments {
		if s.ID == a.SegmentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return p, fmt.Errorf("segment %s: %w", a.SegmentID, ErrNotFound)
	}

	segments := append([]models.GridSegment(nil), rung.Segments...)
	s := &segments[idx]
	switch {
	case s.Shape == models.ShapeTee:
		s.Flipped = !s.Flipped
	case s.Shape.IsCorner():
		s.Mirrored = !s.Mirrored
	default:
		return p, fmt.Errorf("%w: %s cannot be flipped", ErrInvalidShape, s.Shape)
	}
	rung.Segments = segments
	return withRung(p, a.RungIndex, rung), nil
}

func (a AddVerticalLink) apply(p *models.Project) (*models.Project, error) {
	l, err := checkLink(p, a.Link)
	if err != nil {
		return p, err
	}
	out := shallow(p)
	out.VerticalLinks = append(append([]models.VerticalLink(nil), p.VerticalLinks...), l)
	return out, nil
}

func (a DeleteVerticalLink) apply(p *models.Project) (*models.Project, error) {
	for i, l := range p.VerticalLinks {
		if l.ID != a.LinkID {
			continue
		}
		out := shallow(p)
		links := make([]models.VerticalLink, 0, len(p.VerticalLinks)-1)
		links = append(links, p.VerticalLinks[:i]...)
		out.VerticalLinks = append(links, p.VerticalLinks[i+1:]...)
		return out, nil
	}
	return p, fmt.Errorf("vertical link %s: %w", a.LinkID, ErrNotFound)
}

func (a AddPOU) apply(p *models.Project) (*models.Project, error) {
	pou := a.POU.Clone()
	if pou.ID == "" {
		pou.ID = uuid.New().String()
	}
	if len(pou.Rungs) == 0 {
		pou.Rungs = []models.Rung{BlankRung()}
	}
	if err := checkPOU(p, pou); err != nil {
		return p, err
	}
	out := shallow(p)
	out.POUs = append(append([]models.POU(nil), p.POUs...), pou)
	return out, nil
}

func (a DeletePOU) apply(p *models.Project) (*models.Project, error) {
	idx := -1
	for i := range p.POUs {
		if p.POUs[i].ID == a.POUID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return p, fmt.Errorf("%w: %s", ErrUnknownPOU, a.POUID)
	}
	for _, r := range p.Rungs {
		for _, c := range r.Components {
			if c.Type == models.TypeFunctionBlock && c.StringVar(POUIDVar) == a.POUID {
				return p, fmt.Errorf("%w: %s", ErrPOUInUse, a.POUID)
			}
		}
	}
	out := shallow(p)
	pous := make([]models.POU, 0, len(p.POUs)-1)
	pous = append(pous, p.POUs[:idx]...)
	out.POUs = append(pous, p.POUs[idx+1:]...)
	return out, nil
}

// checkInstance verifies a function block component references an
// instantiable POU.
func checkInstance(p *models.Project, c models.Component) error {
	id := c.StringVar(POUIDVar)
	pou, ok := p.FindPOU(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPOU, id)
	}
	if !pou.Instantiable() {
		return fmt.Errorf("%w: %s needs at least one input and one output", ErrNotInstantiable, pou.Name)
	}
	return nil
}

func checkPOU(p *models.Project, pou models.POU) error {
	if errs := validation.ValidatePOU(pou); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPOU, strings.Join(errs, "; "))
	}
	for _, existing := range p.POUs {
		if existing.ID == pou.ID {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidPOU, pou.ID)
		}
		if strings.EqualFold(existing.Name, pou.Name) {
			return fmt.Errorf("%w: duplicate name %s", ErrInvalidPOU, pou.Name)
		}
	}
	return nil
}

// checkLink validates link against p and returns it normalized with an id.
func checkLink(p *models.Project, l models.VerticalLink) (models.VerticalLink, error) {
	l = NormalizeLink(l)
	if !inRange(l.FromRung, len(p.Rungs)) || !inRange(l.ToRung, len(p.Rungs)) {
		return l, fmt.Errorf("%w: link rungs %d -> %d", ErrIndexOutOfRange, l.FromRung, l.ToRung)
	}
	if l.FromPosition < grid.MinColumn || l.ToPosition < grid.MinColumn ||
		l.FromPosition > grid.MaxColumn || l.ToPosition > grid.MaxColumn {
		return l, fmt.Errorf("%w: link columns %d -> %d", ErrInvalidColumn, l.FromPosition, l.ToPosition)
	}
	for _, existing := range p.VerticalLinks {
		if existing.SameEndpoints(l) {
			return l, ErrDuplicateLink
		}
	}
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return l, nil
}

// normalizeRung assigns missing ids, defaults widths, sorts components and
// rejects overlapping components, duplicate cells and unknown shapes.
func normalizeRung(r models.Rung) (models.Rung, error) {
	out := models.Rung{
		ID:         r.ID,
		Segments:   make([]models.GridSegment, 0, len(r.Segments)),
		Components: make([]models.Component, 0, len(r.Components)),
	}
	if out.ID == "" {
		out.ID = uuid.New().String()
	}

	for _, c := range r.Components {
		c.Width = c.Span()
		if !grid.ValidSpan(c.Position, c.Width) {
			return r, fmt.Errorf("%w: %d (width %d)", ErrInvalidColumn, c.Position, c.Width)
		}
		if !grid.IsPositionFree(c.Position, c.Width, out.Components, "") {
			return r, fmt.Errorf("%w: column %d", ErrPositionOccupied, c.Position)
		}
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		c.Variables = models.CloneVariables(c.Variables)
		out.Components = append(out.Components, c)
	}
	sortComponents(out.Components)

	for _, s := range r.Segments {
		if !s.Shape.Valid() || s.Shape == models.ShapeNone {
			return r, fmt.Errorf("%w: %q", ErrInvalidShape, s.Shape)
		}
		if s.Column < grid.MinColumn || s.Column > grid.MaxColumn || s.Row < 0 {
			return r, fmt.Errorf("%w: segment (%d, %d)", ErrInvalidColumn, s.Column, s.Row)
		}
		if out.SegmentAt(s.Column, s.Row) >= 0 {
			return r, fmt.Errorf("%w: duplicate cell (%d, %d)", ErrSegmentConflict, s.Column, s.Row)
		}
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		out.Segments = append(out.Segments, s)
	}
	return out, nil
}

func inRange(i, n int) bool { return i >= 0 && i < n }

func shallow(p *models.Project) *models.Project {
	out := *p
	return &out
}

func withRungs(p *models.Project, rungs []models.Rung) *models.Project {
	out := shallow(p)
	out.Rungs = rungs
	return out
}

func withRung(p *models.Project, i int, r models.Rung) *models.Project {
	rungs := append([]models.Rung(nil), p.Rungs...)
	rungs[i] = r
	return withRungs(p, rungs)
}

func without(cs []models.Component, i int) []models.Component {
	out := make([]models.Component, 0, len(cs)-1)
	out = append(out, cs[:i]...)
	return append(out, cs[i+1:]...)
}

func withoutSegment(ss []models.GridSegment, i int) []models.GridSegment {
	out := make([]models.GridSegment, 0, len(ss)-1)
	out = append(out, ss[:i]...)
	return append(out, ss[i+1:]...)
}

// sortedWith returns a new slice holding cs plus c, sorted by position.
func sortedWith(cs []models.Component, c models.Component) []models.Component {
	out := make([]models.Component, 0, len(cs)+1)
	out = append(out, cs...)
	out = append(out, c)
	sortComponents(out)
	return out
}

func sortComponents(cs []models.Component) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Position < cs[j].Position
	})
}
