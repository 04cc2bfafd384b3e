// Package history keeps the bounded undo/redo stacks of an editing session.
package history

import "github.com/plc-ladder/backend/internal/models"

// DefaultLimit is the number of undo steps kept when none is configured.
const DefaultLimit = 50

// History holds past, present and future project snapshots. Snapshots are
// immutable values produced by the reducer, so they are stored by pointer
// without copying. History is not safe for concurrent use.
type History struct {
	past    []*models.Project
	present *models.Project
	future  []*models.Project // future[0] is the next redo
	limit   int
}

// New creates a history rooted at present, keeping at most limit undo steps.
func New(present *models.Project, limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{
		past:    make([]*models.Project, 0, limit),
		present: present,
		limit:   limit,
	}
}

// Present returns the current snapshot.
func (h *History) Present() *models.Project { return h.present }

// Limit returns the undo bound.
func (h *History) Limit() int { return h.limit }

// CanUndo returns true if there is a past state.
func (h *History) CanUndo() bool { return len(h.past) > 0 }

// CanRedo returns true if there is a future state.
func (h *History) CanRedo() bool { return len(h.future) > 0 }

// Commit makes next the present, pushing the old present onto the past and
// dropping the redo stack. The oldest past entry is discarded beyond the
// limit.
func (h *History) Commit(next *models.Project) {
	h.past = append(h.past, h.present)
	if over := len(h.past) - h.limit; over > 0 {
		// Copy down so the backing array does not grow without bound
		n := copy(h.past, h.past[over:])
		clear(h.past[n:])
		h.past = h.past[:n]
	}
	h.present = next
	h.future = nil
}

// Undo steps back one snapshot. It reports false and changes nothing when
// there is no past.
func (h *History) Undo() (*models.Project, bool) {
	if !h.CanUndo() {
		return h.present, false
	}
	last := len(h.past) - 1
	prev := h.past[last]
	h.past[last] = nil
	h.past = h.past[:last]

	h.future = append([]*models.Project{h.present}, h.future...)
	h.present = prev
	return prev, true
}

// Redo steps forward one snapshot. It reports false and changes nothing when
// there is no future.
func (h *History) Redo() (*models.Project, bool) {
	if !h.CanRedo() {
		return h.present, false
	}
	next := h.future[0]
	h.future = h.future[1:]

	h.past = append(h.past, h.present)
	h.present = next
	return next, true
}

// Reset discards both stacks and makes p the present.
func (h *History) Reset(p *models.Project) {
	clear(h.past)
	h.past = h.past[:0]
	h.future = nil
	h.present = p
}

// Len returns the sizes of the past and future stacks.
func (h *History) Len() (past, future int) {
	return len(h.past), len(h.future)
}
