package session

import (
	"fmt"
	"time"

	"github.com/plc-ladder/backend/internal/models"
)

// EventType identifies what changed in a session.
type EventType string

const (
	EventDispatch EventType = "dispatch"
	EventUndo     EventType = "undo"
	EventRedo     EventType = "redo"
	EventLink     EventType = "link" // Link builder state changed
	EventClosed   EventType = "closed"
)

// eventBuffer is the per-subscriber channel capacity. Slow subscribers miss
// events rather than block dispatch.
const eventBuffer = 16

// Event is published to subscribers after every session operation.
type Event struct {
	SessionID  string               `json:"sessionId"`
	Type       EventType            `json:"type"`
	ActionType string               `json:"actionType,omitempty"`
	Accepted   bool                 `json:"accepted"`
	Reason     string               `json:"reason,omitempty"`
	Revision   int                  `json:"revision"`
	History    models.HistoryStatus `json:"history"`
	Project    *models.Project      `json:"project,omitempty"` // Present only when the project changed
	Timestamp  time.Time            `json:"timestamp"`
}

// Subscribe registers for events of a session. The returned function
// unsubscribes and closes the channel; the channel is also closed when the
// session closes.
func (m *Manager) Subscribe(sessionID string) (<-chan Event, func(), error) {
	// Sessions leave the map before their subscribers are closed, so
	// registering under the read lock either lands before that close or
	// sees the session gone.
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return nil, nil, ErrSessionNotFound
	}

	ch := make(chan Event, eventBuffer)

	m.subMu.Lock()
	m.nextSub++
	subID := m.nextSub
	if m.subs[sessionID] == nil {
		m.subs[sessionID] = make(map[int]chan Event)
	}
	m.subs[sessionID][subID] = ch
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if subs, ok := m.subs[sessionID]; ok {
			if c, ok := subs[subID]; ok {
				delete(subs, subID)
				close(c)
			}
			if len(subs) == 0 {
				delete(m.subs, sessionID)
			}
		}
	}
	return ch, cancel, nil
}

func (m *Manager) publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
			fmt.Printf("[Session %s] subscriber slow, dropped %s event\n", shortID(ev.SessionID), ev.Type)
		}
	}
}

// closeSubscribers closes every subscription of a session.
func (m *Manager) closeSubscribers(sessionID string) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs[sessionID] {
		close(ch)
	}
	delete(m.subs, sessionID)
}
