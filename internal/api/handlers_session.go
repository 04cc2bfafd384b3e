// handlers_session.go - Editing session lifecycle and project output handlers
package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/plc-ladder/backend/internal/autosave"
	"github.com/plc-ladder/backend/internal/format"
	"github.com/plc-ladder/backend/internal/storage"
	"github.com/plc-ladder/backend/internal/validation"
	"github.com/vmihailenco/msgpack/v5"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessionMgr SessionManager
	store      storage.Store
	journal    JournalReader  // nil when journaling is disabled
	snapshots  SnapshotLoader // nil when autosave is disabled
	registry   *format.Registry
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(sessionMgr SessionManager, store storage.Store, journal JournalReader, snapshots SnapshotLoader) *SessionHandlerImpl {
	return &SessionHandlerImpl{
		sessionMgr: sessionMgr,
		store:      store,
		journal:    journal,
		snapshots:  snapshots,
		registry:   format.GetGlobalRegistry(),
	}
}

// HandleCreateSession starts a session on a new blank project
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	sess, err := h.sessionMgr.Create(strings.TrimSpace(req.Name))
	if err != nil {
		return sessionError(err, "")
	}

	return c.JSON(http.StatusCreated, sess)
}

// HandleListSessions returns all open sessions
func (h *SessionHandlerImpl) HandleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessionMgr.List())
}

// HandleGetSession returns a session with its present project
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	sess, ok := h.sessionMgr.Get(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	p, err := h.sessionMgr.Project(id)
	if err != nil {
		return sessionError(err, id)
	}
	hist, err := h.sessionMgr.History(id)
	if err != nil {
		return sessionError(err, id)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session": sess,
		"project": p,
		"history": hist,
	})
}

// HandleCloseSession closes a session
func (h *SessionHandlerImpl) HandleCloseSession(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.sessionMgr.Close(id); err != nil {
		return sessionError(err, id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleSessionKeepAlive extends session lifetime for active editing
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleListSnapshots returns the autosave snapshots that can be resumed
func (h *SessionHandlerImpl) HandleListSnapshots(c echo.Context) error {
	if h.snapshots == nil {
		return NewServiceUnavailableError("autosave is disabled")
	}

	snaps, err := h.snapshots.List()
	if err != nil {
		return NewInternalError("failed to list snapshots", err)
	}

	type snapshotSummary struct {
		SessionID   string    `json:"sessionId"`
		Revision    int       `json:"revision"`
		SavedAt     time.Time `json:"savedAt"`
		ProjectName string    `json:"projectName"`
	}
	out := make([]snapshotSummary, 0, len(snaps))
	for _, s := range snaps {
		name := ""
		if s.Project != nil {
			name = s.Project.Name
		}
		out = append(out, snapshotSummary{
			SessionID:   s.SessionID,
			Revision:    s.Revision,
			SavedAt:     s.SavedAt,
			ProjectName: name,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// HandleResumeSession reopens a session from its autosave snapshot
func (h *SessionHandlerImpl) HandleResumeSession(c echo.Context) error {
	if h.snapshots == nil {
		return NewServiceUnavailableError("autosave is disabled")
	}

	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	snap, err := h.snapshots.Load(id)
	if err != nil {
		if errors.Is(err, autosave.ErrSnapshotNotFound) {
			return NewNotFoundError("snapshot", id)
		}
		return NewInternalError("failed to load snapshot", err)
	}

	sess, err := h.sessionMgr.Resume(*snap)
	if err != nil {
		return sessionError(err, id)
	}

	return c.JSON(http.StatusCreated, sess)
}

// HandleGetHistory returns the undo/redo status of a session
func (h *SessionHandlerImpl) HandleGetHistory(c echo.Context) error {
	id := c.Param("id")
	hist, err := h.sessionMgr.History(id)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, hist)
}

// HandleValidate lints the present project of a session
func (h *SessionHandlerImpl) HandleValidate(c echo.Context) error {
	id := c.Param("id")
	p, err := h.sessionMgr.Project(id)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, validation.ValidateProject(p))
}

// HandleExport renders the present project in the requested format
func (h *SessionHandlerImpl) HandleExport(c echo.Context) error {
	id := c.Param("id")
	name := c.QueryParam("format")
	if name == "" {
		name = "json"
	}

	p, err := h.sessionMgr.Project(id)
	if err != nil {
		return sessionError(err, id)
	}

	data, codec, err := h.registry.Marshal(name, p)
	if err != nil {
		if errors.Is(err, format.ErrUnsupportedFormat) {
			return NewBadRequestError(fmt.Sprintf("unsupported format %q", name), err)
		}
		return NewInternalError("failed to export project", err)
	}

	filename := exportFileName(p.Name, codec)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, codec.ContentType(), data)
}

// HandleProjectMsgpack returns the present project with its history status
// as a msgpack document
func (h *SessionHandlerImpl) HandleProjectMsgpack(c echo.Context) error {
	id := c.Param("id")
	p, err := h.sessionMgr.Project(id)
	if err != nil {
		return sessionError(err, id)
	}
	hist, err := h.sessionMgr.History(id)
	if err != nil {
		return sessionError(err, id)
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	err = enc.Encode(map[string]interface{}{
		"revision": hist.Revision,
		"history":  hist,
		"project":  p,
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", buf.Bytes())
}

// HandleSave writes the present project to the file store. With a fileId
// the stored file is overwritten in its own format; otherwise a new file is
// created.
func (h *SessionHandlerImpl) HandleSave(c echo.Context) error {
	id := c.Param("id")

	var req saveRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	sess, ok := h.sessionMgr.Get(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	p, err := h.sessionMgr.Project(id)
	if err != nil {
		return sessionError(err, id)
	}

	fileID := req.FileID
	if fileID == "" && req.Name == "" {
		fileID = sess.FileID
	}

	if fileID != "" {
		existing, err := h.store.Get(fileID)
		if err != nil {
			return fileError(err, fileID)
		}
		data, _, err := h.registry.Marshal(existing.Format, p)
		if err != nil {
			return NewBadRequestError("stored file format cannot be written", err)
		}
		info, err := h.store.Replace(fileID, data)
		if err != nil {
			return fileError(err, fileID)
		}
		return h.saved(c, id, info.ID, info)
	}

	formatName := req.Format
	if formatName == "" {
		formatName = "json"
	}
	data, codec, err := h.registry.Marshal(formatName, p)
	if err != nil {
		if errors.Is(err, format.ErrUnsupportedFormat) {
			return NewBadRequestError(fmt.Sprintf("unsupported format %q", formatName), err)
		}
		return NewInternalError("failed to encode project", err)
	}

	name := req.Name
	if name == "" {
		name = exportFileName(p.Name, codec)
	} else if !hasExtension(name, codec) {
		name += codec.Extensions()[0]
	}
	info, err := h.store.SaveBytes(name, data)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}
	return h.saved(c, id, info.ID, info)
}

func (h *SessionHandlerImpl) saved(c echo.Context, sessionID, fileID string, info interface{}) error {
	if err := h.sessionMgr.MarkSaved(sessionID, fileID); err != nil {
		return sessionError(err, sessionID)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleGetJournal returns recorded operations of a session
func (h *SessionHandlerImpl) HandleGetJournal(c echo.Context) error {
	if h.journal == nil {
		return NewServiceUnavailableError("journal is disabled")
	}

	id := c.Param("id")
	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return NewValidationError("limit")
		}
		limit = n
	}

	ctx := c.Request().Context()
	entries, err := h.journal.Entries(ctx, id, limit)
	if err != nil {
		return NewInternalError("failed to read journal", err)
	}
	stats, err := h.journal.Stats(ctx, id)
	if err != nil {
		return NewInternalError("failed to read journal", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
		"stats":   stats,
	})
}

// Request/Response types

type createSessionRequest struct {
	Name string `json:"name"`
}

type saveRequest struct {
	FileID string `json:"fileId"`
	Name   string `json:"name"`
	Format string `json:"format"`
}

// Helper functions

// exportFileName derives a file name from a project name.
func exportFileName(projectName string, codec format.Codec) string {
	base := strings.TrimSpace(projectName)
	if base == "" {
		base = format.DefaultProjectName
	}
	base = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':', '"':
			return '_'
		}
		return r
	}, base)
	return base + codec.Extensions()[0]
}

func hasExtension(name string, codec format.Codec) bool {
	lower := strings.ToLower(name)
	for _, ext := range codec.Extensions() {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
