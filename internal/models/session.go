package models

import "time"

// SessionStatus represents the status of an editing session.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusLinking SessionStatus = "linking" // A vertical link is being drawn
	SessionStatusClosed  SessionStatus = "closed"
)

// EditSession describes one open project being edited.
type EditSession struct {
	ID          string        `json:"id"`
	FileID      string        `json:"fileId,omitempty"` // Stored file the project was opened from
	ProjectName string        `json:"projectName"`
	Status      SessionStatus `json:"status"`
	Revision    int           `json:"revision"` // Incremented on every commit, undo and redo
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// HistoryStatus summarizes the undo/redo stacks of a session.
type HistoryStatus struct {
	CanUndo   bool `json:"canUndo"`
	CanRedo   bool `json:"canRedo"`
	PastLen   int  `json:"pastLen"`
	FutureLen int  `json:"futureLen"`
	Limit     int  `json:"limit"`
	Revision  int  `json:"revision"`
}

// NewEditSession creates a new EditSession in active status.
func NewEditSession(id, projectName string) *EditSession {
	now := time.Now()
	return &EditSession{
		ID:          id,
		ProjectName: projectName,
		Status:      SessionStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
