package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plc-ladder/backend/internal/autosave"
	"github.com/plc-ladder/backend/internal/catalog"
	"github.com/plc-ladder/backend/internal/grid"
	"github.com/plc-ladder/backend/internal/history"
	"github.com/plc-ladder/backend/internal/journal"
	"github.com/plc-ladder/backend/internal/ladder"
	"github.com/plc-ladder/backend/internal/models"
)

// MaxSessions limits concurrent sessions to bound memory use.
const MaxSessions = 10

// SessionMaxAge is how long an idle session is kept before cleanup.
const SessionMaxAge = 30 * time.Minute

// SessionKeepAliveWindow is how long a recently used session is protected
// from cleanup.
const SessionKeepAliveWindow = 5 * time.Minute

var (
	// ErrSessionNotFound is returned for unknown or closed sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when resuming a session that is open.
	ErrSessionExists = errors.New("session already open")
	// ErrNotLinking is returned when completing a link that was never started.
	ErrNotLinking = errors.New("no vertical link in progress")
)

// Journal records session operations.
type Journal interface {
	Record(e journal.Entry)
}

// Autosaver persists snapshots after a quiet period.
type Autosaver interface {
	Schedule(snap autosave.Snapshot)
	Flush(sessionID string) (bool, error)
	Cancel(sessionID string)
}

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	HistoryLimit int
	MaxSessions  int
	Journal      Journal
	Autosaver    Autosaver
	Catalog      *catalog.Catalog
}

// Manager owns the open editing sessions.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex
	opts     Options

	subs    map[string]map[int]chan Event
	subMu   sync.Mutex
	nextSub int
}

// SessionState holds one session's history and link builder. All fields
// except LastAccessed are guarded by the state's own lock, which serializes
// operations on the session; LastAccessed is guarded by the manager lock.
type SessionState struct {
	Session      *models.EditSession
	History      *history.History
	Links        *ladder.LinkBuilder
	LastAccessed time.Time

	mu     sync.Mutex
	closed bool
}

// Result is the outcome of an operation that may change the project.
type Result struct {
	Accepted bool                 `json:"accepted"`
	Reason   string               `json:"reason,omitempty"`
	Revision int                  `json:"revision"`
	History  models.HistoryStatus `json:"history"`
	Project  *models.Project      `json:"project"`
}

// ComponentPreview answers whether a component fits at a column.
type ComponentPreview struct {
	Column  int  `json:"column"`
	Free    bool `json:"free"`
	Nearest int  `json:"nearest"` // Closest free column, equal to Column when free
}

// NewManager creates a session manager.
func NewManager(opts Options) *Manager {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = history.DefaultLimit
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = MaxSessions
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	return &Manager{
		sessions: make(map[string]*SessionState),
		opts:     opts,
		subs:     make(map[string]map[int]chan Event),
	}
}

// shortID safely truncates an ID for logging.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// Catalog returns the base component catalog.
func (m *Manager) Catalog() *catalog.Catalog {
	return m.opts.Catalog
}

// Create starts a session on a new project with one empty rung.
func (m *Manager) Create(name string) (*models.EditSession, error) {
	if name == "" {
		name = "Untitled Project"
	}
	return m.start(uuid.New().String(), "", ladder.NewProject(name), 0)
}

// Open starts a session on a loaded project. The project is normalized the
// same way a LOAD_PROJECT action is and rejected when invalid.
func (m *Manager) Open(fileID string, p *models.Project) (*models.EditSession, error) {
	if p == nil {
		return nil, fmt.Errorf("invalid project: %w", ladder.ErrNoRungs)
	}
	initial, err := ladder.Apply(ladder.NewProject(p.Name), ladder.LoadProject{Project: p})
	if err != nil && !errors.Is(err, ladder.ErrNoChange) {
		return nil, fmt.Errorf("invalid project: %w", err)
	}
	return m.start(uuid.New().String(), fileID, initial, 0)
}

// Resume reopens a session from an autosave snapshot under its original id.
func (m *Manager) Resume(snap autosave.Snapshot) (*models.EditSession, error) {
	if snap.Project == nil || len(snap.Project.Rungs) == 0 {
		return nil, fmt.Errorf("invalid snapshot: %w", ladder.ErrNoRungs)
	}
	m.mu.RLock()
	_, open := m.sessions[snap.SessionID]
	m.mu.RUnlock()
	if open {
		return nil, ErrSessionExists
	}
	return m.start(snap.SessionID, "", snap.Project, snap.Revision)
}

func (m *Manager) start(id, fileID string, p *models.Project, revision int) (*models.EditSession, error) {
	m.cleanupOldSessionsIfNeeded()

	sess := models.NewEditSession(id, p.Name)
	sess.FileID = fileID
	sess.Revision = revision

	state := &SessionState{
		Session:      sess,
		History:      history.New(p, m.opts.HistoryLimit),
		Links:        ladder.NewLinkBuilder(),
		LastAccessed: time.Now(),
	}

	m.mu.Lock()
	if _, exists := m.sessions[id]; exists {
		m.mu.Unlock()
		return nil, ErrSessionExists
	}
	m.sessions[id] = state
	m.mu.Unlock()
	activeSessions.Inc()

	m.record(state, journal.Entry{Kind: journal.KindOpen, Accepted: true})
	fmt.Printf("[Session %s] opened %q (%d rungs)\n", shortID(id), p.Name, len(p.Rungs))

	out := *sess
	return &out, nil
}

// lockState returns the locked state of an open session and marks it used.
// The caller must unlock state.mu.
func (m *Manager) lockState(id string) (*SessionState, error) {
	m.mu.Lock()
	state, ok := m.sessions[id]
	if ok {
		state.LastAccessed = time.Now()
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	state.mu.Lock()
	if state.closed {
		state.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return state, nil
}

// Get returns a copy of the session metadata.
func (m *Manager) Get(id string) (*models.EditSession, bool) {
	state, err := m.lockState(id)
	if err != nil {
		return nil, false
	}
	defer state.mu.Unlock()

	out := *state.Session
	return &out, true
}

// List returns all open sessions, oldest first.
func (m *Manager) List() []models.EditSession {
	m.mu.RLock()
	states := make([]*SessionState, 0, len(m.sessions))
	for _, s := range m.sessions {
		states = append(states, s)
	}
	m.mu.RUnlock()

	out := make([]models.EditSession, 0, len(states))
	for _, s := range states {
		s.mu.Lock()
		if !s.closed {
			out = append(out, *s.Session)
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Project returns the present project of a session. The value is shared and
// must not be modified.
func (m *Manager) Project(id string) (*models.Project, error) {
	state, err := m.lockState(id)
	if err != nil {
		return nil, err
	}
	defer state.mu.Unlock()
	return state.History.Present(), nil
}

// History returns the undo/redo status of a session.
func (m *Manager) History(id string) (models.HistoryStatus, error) {
	state, err := m.lockState(id)
	if err != nil {
		return models.HistoryStatus{}, err
	}
	defer state.mu.Unlock()
	return historyStatus(state), nil
}

func historyStatus(state *SessionState) models.HistoryStatus {
	past, future := state.History.Len()
	return models.HistoryStatus{
		CanUndo:   past > 0,
		CanRedo:   future > 0,
		PastLen:   past,
		FutureLen: future,
		Limit:     state.History.Limit(),
		Revision:  state.Session.Revision,
	}
}

// Dispatch reduces an action against the session's present project. Accepted
// actions are committed to history; rejected ones leave the session as is
// and report the reason. The error is non-nil only for unknown sessions.
func (m *Manager) Dispatch(id string, a ladder.Action) (Result, error) {
	state, err := m.lockState(id)
	if err != nil {
		return Result{}, err
	}
	defer state.mu.Unlock()

	return m.dispatchLocked(state, a), nil
}

func (m *Manager) dispatchLocked(state *SessionState, a ladder.Action) Result {
	actionType := "nil"
	if a != nil {
		actionType = string(a.Type())
	}

	start := time.Now()
	prev := state.History.Present()
	next, err := ladder.Apply(prev, a)
	dispatchDuration.WithLabelValues(actionType).Observe(time.Since(start).Seconds())

	entry := journal.Entry{Kind: journal.KindDispatch, ActionType: actionType}
	if a != nil {
		if payload, encErr := ladder.EncodeAction(a); encErr == nil {
			entry.Payload = string(payload)
		}
	}

	if err != nil {
		dispatchTotal.WithLabelValues(actionType, "rejected").Inc()
		fmt.Printf("[Session %s] dispatch %s rejected: %v\n", shortID(state.Session.ID), actionType, err)

		entry.Reason = err.Error()
		m.record(state, entry)
		res := Result{
			Reason:   err.Error(),
			Revision: state.Session.Revision,
			History:  historyStatus(state),
			Project:  prev,
		}
		m.publish(Event{
			SessionID:  state.Session.ID,
			Type:       EventDispatch,
			ActionType: actionType,
			Reason:     res.Reason,
			Revision:   res.Revision,
			History:    res.History,
		})
		return res
	}

	dispatchTotal.WithLabelValues(actionType, "accepted").Inc()
	state.History.Commit(next)
	fmt.Printf("[Session %s] dispatch %s accepted\n", shortID(state.Session.ID), actionType)

	entry.Accepted = true
	return m.changed(state, EventDispatch, entry)
}

// changed finishes an operation that replaced the present project.
func (m *Manager) changed(state *SessionState, evType EventType, entry journal.Entry) Result {
	p := state.History.Present()
	state.Session.Revision++
	state.Session.UpdatedAt = time.Now()
	state.Session.ProjectName = p.Name

	m.record(state, entry)
	if m.opts.Autosaver != nil {
		if p.Settings.AutoSave() {
			m.opts.Autosaver.Schedule(autosave.Snapshot{
				SessionID: state.Session.ID,
				Revision:  state.Session.Revision,
				Project:   p,
			})
		} else {
			// Autosave was switched off; drop a snapshot still waiting.
			m.opts.Autosaver.Cancel(state.Session.ID)
		}
	}

	res := Result{
		Accepted: true,
		Revision: state.Session.Revision,
		History:  historyStatus(state),
		Project:  p,
	}
	m.publish(Event{
		SessionID:  state.Session.ID,
		Type:       evType,
		ActionType: entry.ActionType,
		Accepted:   true,
		Revision:   res.Revision,
		History:    res.History,
		Project:    p,
	})
	return res
}

func (m *Manager) record(state *SessionState, e journal.Entry) {
	if m.opts.Journal == nil {
		return
	}
	p := state.History.Present()
	e.SessionID = state.Session.ID
	e.Revision = state.Session.Revision
	e.Rungs = len(p.Rungs)
	e.Components = p.ComponentCount()
	m.opts.Journal.Record(e)
}

// Undo steps the session back one snapshot. Without history it reports
// Accepted false and changes nothing.
func (m *Manager) Undo(id string) (Result, error) {
	return m.step(id, journal.KindUndo, EventUndo, (*history.History).Undo)
}

// Redo re-applies the most recently undone snapshot.
func (m *Manager) Redo(id string) (Result, error) {
	return m.step(id, journal.KindRedo, EventRedo, (*history.History).Redo)
}

func (m *Manager) step(id, kind string, evType EventType, move func(*history.History) (*models.Project, bool)) (Result, error) {
	state, err := m.lockState(id)
	if err != nil {
		return Result{}, err
	}
	defer state.mu.Unlock()

	if _, ok := move(state.History); !ok {
		historyOps.WithLabelValues(kind, "empty").Inc()
		return Result{
			Reason:   fmt.Sprintf("nothing to %s", kind),
			Revision: state.Session.Revision,
			History:  historyStatus(state),
			Project:  state.History.Present(),
		}, nil
	}
	historyOps.WithLabelValues(kind, "ok").Inc()
	fmt.Printf("[Session %s] %s\n", shortID(id), kind)
	return m.changed(state, evType, journal.Entry{Kind: kind, Accepted: true}), nil
}

// StartLink anchors a vertical link at (rung, column). Starting again moves
// the anchor.
func (m *Manager) StartLink(id string, rung, column int) error {
	state, err := m.lockState(id)
	if err != nil {
		return err
	}
	defer state.mu.Unlock()

	p := state.History.Present()
	if rung < 0 || rung >= len(p.Rungs) {
		return fmt.Errorf("%w: rung %d", ladder.ErrIndexOutOfRange, rung)
	}
	if column < grid.MinColumn {
		return fmt.Errorf("%w: %d", ladder.ErrInvalidColumn, column)
	}

	state.Links.Start(rung, column)
	state.Session.Status = models.SessionStatusLinking
	m.publishLink(state)
	return nil
}

// CompleteLink ends the link started by StartLink and dispatches it as an
// ADD_VERTICAL_LINK action. The builder returns to idle whether or not the
// reducer accepts the link.
func (m *Manager) CompleteLink(id string, rung, column int) (Result, error) {
	state, err := m.lockState(id)
	if err != nil {
		return Result{}, err
	}
	defer state.mu.Unlock()

	link, ok := state.Links.Complete(rung, column)
	if !ok {
		return Result{}, ErrNotLinking
	}
	state.Session.Status = models.SessionStatusActive
	m.publishLink(state)
	return m.dispatchLocked(state, ladder.AddVerticalLink{Link: link}), nil
}

// CancelLink discards an in-progress link.
func (m *Manager) CancelLink(id string) error {
	state, err := m.lockState(id)
	if err != nil {
		return err
	}
	defer state.mu.Unlock()

	if state.Links.State() == ladder.LinkIdle {
		return nil
	}
	state.Links.Cancel()
	state.Session.Status = models.SessionStatusActive
	m.publishLink(state)
	return nil
}

// LinkState returns the link builder state and its anchor while linking.
func (m *Manager) LinkState(id string) (ladder.LinkState, int, int, error) {
	state, err := m.lockState(id)
	if err != nil {
		return ladder.LinkIdle, 0, 0, err
	}
	defer state.mu.Unlock()

	rung, column, _ := state.Links.Anchor()
	return state.Links.State(), rung, column, nil
}

func (m *Manager) publishLink(state *SessionState) {
	m.publish(Event{
		SessionID: state.Session.ID,
		Type:      EventLink,
		Accepted:  true,
		Reason:    string(state.Links.State()),
		Revision:  state.Session.Revision,
		History:   historyStatus(state),
	})
}

// PreviewComponent reports whether a component of width could be placed at
// column in a rung, and the nearest free column otherwise. excludeID skips
// the component being moved.
func (m *Manager) PreviewComponent(id string, rungIndex, column, width int, excludeID string) (ComponentPreview, error) {
	state, err := m.lockState(id)
	if err != nil {
		return ComponentPreview{}, err
	}
	defer state.mu.Unlock()

	p := state.History.Present()
	if rungIndex < 0 || rungIndex >= len(p.Rungs) {
		return ComponentPreview{}, fmt.Errorf("%w: rung %d", ladder.ErrIndexOutOfRange, rungIndex)
	}
	if column < grid.MinColumn {
		column = grid.MinColumn
	}
	comps := p.Rungs[rungIndex].Components
	free := grid.IsPositionFree(column, width, comps, excludeID)
	return ComponentPreview{
		Column:  column,
		Free:    free,
		Nearest: grid.NearestFreePosition(column, width, comps, excludeID),
	}, nil
}

// PreviewSegment reports whether a segment could be drawn at (column, row).
func (m *Manager) PreviewSegment(id string, rungIndex, column, row int, shape models.SegmentShape) (bool, error) {
	state, err := m.lockState(id)
	if err != nil {
		return false, err
	}
	defer state.mu.Unlock()

	p := state.History.Present()
	if rungIndex < 0 || rungIndex >= len(p.Rungs) {
		return false, fmt.Errorf("%w: rung %d", ladder.ErrIndexOutOfRange, rungIndex)
	}
	if !shape.Valid() || shape == models.ShapeNone || column < grid.MinColumn || row < 0 {
		return false, nil
	}
	rung := p.Rungs[rungIndex]
	return grid.CanPlaceSegment(column, row, shape, rung.Segments, rung.Components), nil
}

// SessionCatalog returns the palette of a session: the base catalog plus its
// instantiable function blocks.
func (m *Manager) SessionCatalog(id string) (*catalog.Catalog, error) {
	p, err := m.Project(id)
	if err != nil {
		return nil, err
	}
	return m.opts.Catalog.WithFunctionBlocks(p.POUs), nil
}

// PlaceComponent instantiates a catalog tool and dispatches it as an
// ADD_COMPONENT action.
func (m *Manager) PlaceComponent(id string, rungIndex int, componentType string, column int, pouID string) (Result, error) {
	comp, err := m.opts.Catalog.Instantiate(componentType, column, pouID)
	if err != nil {
		return Result{}, err
	}
	comp.ID = uuid.New().String()
	return m.Dispatch(id, ladder.AddComponent{RungIndex: rungIndex, Component: comp})
}

// MarkSaved records the stored file a session was saved to.
func (m *Manager) MarkSaved(id, fileID string) error {
	state, err := m.lockState(id)
	if err != nil {
		return err
	}
	defer state.mu.Unlock()

	state.Session.FileID = fileID
	state.Session.UpdatedAt = time.Now()
	return nil
}

// Close ends a session, writing any pending autosave first.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	state, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	m.finish(state)
	fmt.Printf("[Session %s] closed\n", shortID(id))
	return nil
}

// finish closes a state already removed from the session map.
func (m *Manager) finish(state *SessionState) {
	state.mu.Lock()
	if state.closed {
		state.mu.Unlock()
		return
	}
	state.closed = true
	state.Session.Status = models.SessionStatusClosed
	state.Links.Cancel()

	if m.opts.Autosaver != nil {
		if _, err := m.opts.Autosaver.Flush(state.Session.ID); err != nil {
			fmt.Printf("[Session %s] final autosave failed: %v\n", shortID(state.Session.ID), err)
		}
	}
	m.record(state, journal.Entry{Kind: journal.KindClose, Accepted: true})
	ev := Event{
		SessionID: state.Session.ID,
		Type:      EventClosed,
		Accepted:  true,
		Revision:  state.Session.Revision,
		History:   historyStatus(state),
	}
	state.mu.Unlock()

	activeSessions.Dec()
	m.publish(ev)
	m.closeSubscribers(state.Session.ID)
}

// cleanupOldSessionsIfNeeded evicts the least recently used sessions while
// the manager is at capacity.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	toFree := len(m.sessions) - m.opts.MaxSessions + 1
	if toFree <= 0 {
		m.mu.Unlock()
		return
	}

	states := make([]*SessionState, 0, len(m.sessions))
	for _, s := range m.sessions {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].LastAccessed.Before(states[j].LastAccessed)
	})

	evicted := states[:toFree]
	for _, s := range evicted {
		delete(m.sessions, s.Session.ID)
	}
	m.mu.Unlock()

	for _, s := range evicted {
		m.finish(s)
		sessionsEvicted.WithLabelValues("capacity").Inc()
		fmt.Printf("[Manager] Evicted least recently used session %s\n", shortID(s.Session.ID))
	}
}

// CleanupOldSessions closes sessions idle for longer than maxAge, but keeps
// sessions used within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	now := time.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-SessionKeepAliveWindow)

	m.mu.Lock()
	var expired []*SessionState
	for id, state := range m.sessions {
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			expired = append(expired, state)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		idle := time.Since(s.LastAccessed).Round(time.Second)
		m.finish(s)
		sessionsEvicted.WithLabelValues("idle").Inc()
		fmt.Printf("[Manager] Cleaned up idle session %s (last accessed: %s ago)\n", shortID(s.Session.ID), idle)
	}
	return len(expired)
}

// TouchSession updates the LastAccessed timestamp of a session so that it
// is not cleaned up.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	states := make([]*SessionState, 0, len(m.sessions))
	for id, s := range m.sessions {
		states = append(states, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range states {
		m.finish(s)
	}
}
