package autosave

import (
	"fmt"
	"sync"
	"time"
)

// Saver persists a snapshot.
type Saver interface {
	Save(snap Snapshot) error
}

type pendingSave struct {
	snap  Snapshot
	timer *time.Timer
}

// Scheduler debounces saves per session: a snapshot is written once no newer
// snapshot for the same session has been scheduled for the configured delay.
type Scheduler struct {
	mu      sync.Mutex
	saver   Saver
	delay   time.Duration
	pending map[string]*pendingSave
	stopped bool
}

// NewScheduler creates a scheduler writing to saver after delay.
func NewScheduler(saver Saver, delay time.Duration) *Scheduler {
	return &Scheduler{
		saver:   saver,
		delay:   delay,
		pending: make(map[string]*pendingSave),
	}
}

// Schedule queues snap, replacing any snapshot still waiting for the same
// session and restarting its delay. Projects are never mutated in place, so
// the snapshot may share them with the caller.
func (s *Scheduler) Schedule(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if old, ok := s.pending[snap.SessionID]; ok {
		old.timer.Stop()
	}

	p := &pendingSave{snap: snap}
	p.timer = time.AfterFunc(s.delay, func() { s.fire(snap.SessionID, p) })
	s.pending[snap.SessionID] = p
}

func (s *Scheduler) fire(sessionID string, p *pendingSave) {
	s.mu.Lock()
	if s.pending[sessionID] != p {
		// Superseded or cancelled after the timer fired.
		s.mu.Unlock()
		return
	}
	delete(s.pending, sessionID)
	s.mu.Unlock()

	s.save(p.snap)
}

func (s *Scheduler) save(snap Snapshot) error {
	if err := s.saver.Save(snap); err != nil {
		fmt.Printf("[Autosave %s] save failed: %v\n", shortID(snap.SessionID), err)
		return err
	}
	fmt.Printf("[Autosave %s] saved revision %d\n", shortID(snap.SessionID), snap.Revision)
	return nil
}

// Flush writes the pending snapshot of a session immediately.
// It reports false when nothing was pending.
func (s *Scheduler) Flush(sessionID string) (bool, error) {
	s.mu.Lock()
	p, ok := s.pending[sessionID]
	if ok {
		p.timer.Stop()
		delete(s.pending, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, s.save(p.snap)
}

// Cancel drops the pending snapshot of a session.
func (s *Scheduler) Cancel(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[sessionID]; ok {
		p.timer.Stop()
		delete(s.pending, sessionID)
	}
}

// Pending returns the number of sessions waiting to be saved.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop writes every pending snapshot and rejects further scheduling.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	pending := s.pending
	s.pending = make(map[string]*pendingSave)
	s.mu.Unlock()

	for _, p := range pending {
		p.timer.Stop()
		s.save(p.snap)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
