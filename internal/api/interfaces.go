// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/plc-ladder/backend/internal/autosave"
	"github.com/plc-ladder/backend/internal/catalog"
	"github.com/plc-ladder/backend/internal/journal"
	"github.com/plc-ladder/backend/internal/ladder"
	"github.com/plc-ladder/backend/internal/models"
	"github.com/plc-ladder/backend/internal/session"
)

// UploadHandler handles project file import and management
type UploadHandler interface {
	HandleImportFile(c echo.Context) error
	HandleImportBinary(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
	HandleRenameFile(c echo.Context) error
	HandleOpenFile(c echo.Context) error
}

// SessionHandler handles editing session lifecycle and project output
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleListSessions(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleCloseSession(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleListSnapshots(c echo.Context) error
	HandleResumeSession(c echo.Context) error
	HandleGetHistory(c echo.Context) error
	HandleValidate(c echo.Context) error
	HandleExport(c echo.Context) error
	HandleProjectMsgpack(c echo.Context) error
	HandleSave(c echo.Context) error
	HandleGetJournal(c echo.Context) error
}

// EditHandler handles structural edits of a session's project
type EditHandler interface {
	HandleDispatch(c echo.Context) error
	HandlePlaceComponent(c echo.Context) error
	HandleUndo(c echo.Context) error
	HandleRedo(c echo.Context) error
	HandlePreviewComponent(c echo.Context) error
	HandlePreviewSegment(c echo.Context) error
	HandleStartLink(c echo.Context) error
	HandleCompleteLink(c echo.Context) error
	HandleCancelLink(c echo.Context) error
	HandleLinkState(c echo.Context) error
}

// CatalogHandler serves the component palette
type CatalogHandler interface {
	HandleGetCatalog(c echo.Context) error
	HandleGetSessionCatalog(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Create(name string) (*models.EditSession, error)
	Open(fileID string, p *models.Project) (*models.EditSession, error)
	Resume(snap autosave.Snapshot) (*models.EditSession, error)
	Get(id string) (*models.EditSession, bool)
	List() []models.EditSession
	Project(id string) (*models.Project, error)
	History(id string) (models.HistoryStatus, error)
	Dispatch(id string, a ladder.Action) (session.Result, error)
	Undo(id string) (session.Result, error)
	Redo(id string) (session.Result, error)
	StartLink(id string, rung, column int) error
	CompleteLink(id string, rung, column int) (session.Result, error)
	CancelLink(id string) error
	LinkState(id string) (ladder.LinkState, int, int, error)
	PreviewComponent(id string, rungIndex, column, width int, excludeID string) (session.ComponentPreview, error)
	PreviewSegment(id string, rungIndex, column, row int, shape models.SegmentShape) (bool, error)
	Catalog() *catalog.Catalog
	SessionCatalog(id string) (*catalog.Catalog, error)
	PlaceComponent(id string, rungIndex int, componentType string, column int, pouID string) (session.Result, error)
	MarkSaved(id, fileID string) error
	Close(id string) error
	TouchSession(id string) bool
	Len() int
	Subscribe(id string) (<-chan session.Event, func(), error)
}

// JournalReader reads recorded session operations.
type JournalReader interface {
	Entries(ctx context.Context, sessionID string, limit int) ([]journal.Entry, error)
	Stats(ctx context.Context, sessionID string) (journal.Stats, error)
}

// SnapshotLoader reads autosave snapshots.
type SnapshotLoader interface {
	Load(sessionID string) (*autosave.Snapshot, error)
	List() ([]autosave.Snapshot, error)
}

var _ SessionManager = (*session.Manager)(nil)
