package ladder

import (
	"github.com/google/uuid"
	"github.com/plc-ladder/backend/internal/models"
)

// LinkState is the state of a LinkBuilder.
type LinkState string

const (
	LinkIdle    LinkState = "idle"
	LinkLinking LinkState = "linking"
)

// LinkBuilder tracks an in-progress vertical link between a start click and
// a completing click. It is not safe for concurrent use.
type LinkBuilder struct {
	state        LinkState
	anchorRung   int
	anchorColumn int
}

// NewLinkBuilder returns an idle builder.
func NewLinkBuilder() *LinkBuilder {
	return &LinkBuilder{state: LinkIdle}
}

// State returns the current state.
func (b *LinkBuilder) State() LinkState {
	if b.state == "" {
		return LinkIdle
	}
	return b.state
}

// Anchor returns the start point while linking.
func (b *LinkBuilder) Anchor() (rung, column int, ok bool) {
	if b.State() != LinkLinking {
		return 0, 0, false
	}
	return b.anchorRung, b.anchorColumn, true
}

// Start records the anchor and enters the linking state. Starting again while
// linking moves the anchor.
func (b *LinkBuilder) Start(rung, column int) {
	b.state = LinkLinking
	b.anchorRung = rung
	b.anchorColumn = column
}

// Complete ends the link at (rung, column) and returns it normalized so that
// it points downward. Without an anchor nothing is emitted.
func (b *LinkBuilder) Complete(rung, column int) (models.VerticalLink, bool) {
	if b.State() != LinkLinking {
		return models.VerticalLink{}, false
	}
	link := NormalizeLink(models.VerticalLink{
		ID:           uuid.New().String(),
		FromRung:     b.anchorRung,
		FromPosition: b.anchorColumn,
		ToRung:       rung,
		ToPosition:   column,
	})
	b.Cancel()
	return link, true
}

// Cancel discards the anchor and returns to idle.
func (b *LinkBuilder) Cancel() {
	b.state = LinkIdle
	b.anchorRung = 0
	b.anchorColumn = 0
}

// NormalizeLink swaps the endpoints of an upward link so FromRung <= ToRung.
// Columns travel with their rungs.
func NormalizeLink(l models.VerticalLink) models.VerticalLink {
	if l.FromRung > l.ToRung {
		l.FromRung, l.ToRung = l.ToRung, l.FromRung
		l.FromPosition, l.ToPosition = l.ToPosition, l.FromPosition
	}
	return l
}
