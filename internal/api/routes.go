// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/plc-ladder/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store            storage.Store
	SessionMgr       SessionManager
	Journal          JournalReader  // Optional
	Snapshots        SnapshotLoader // Optional
	Version          string
	WSMaxMessageKB   int
	AllowedFileTypes []string // Import extensions; empty allows all
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Upload    UploadHandler
	Session   SessionHandler
	Edit      EditHandler
	Catalog   CatalogHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.SessionMgr),
		Upload:    NewUploadHandler(deps.Store, deps.SessionMgr, deps.AllowedFileTypes),
		Session:   NewSessionHandler(deps.SessionMgr, deps.Store, deps.Journal, deps.Snapshots),
		Edit:      NewEditHandler(deps.SessionMgr),
		Catalog:   NewCatalogHandler(deps.SessionMgr),
		WebSocket: NewWebSocketHandler(deps.SessionMgr, deps.WSMaxMessageKB),
	}
}

// RouteOptions toggles optional routes
type RouteOptions struct {
	AllowFileDeletion bool
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers, opts RouteOptions) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Component palette
	apiGroup.GET("/catalog", handlers.Catalog.HandleGetCatalog)

	// Project files
	fileGroup := apiGroup.Group("/files")
	fileGroup.POST("/import", handlers.Upload.HandleImportFile)
	fileGroup.POST("/import/binary", handlers.Upload.HandleImportBinary)
	fileGroup.GET("/recent", handlers.Upload.HandleGetRecentFiles)
	fileGroup.GET("/:id", handlers.Upload.HandleGetFile)
	if opts.AllowFileDeletion {
		fileGroup.DELETE("/:id", handlers.Upload.HandleDeleteFile)
	}
	fileGroup.PUT("/:id", handlers.Upload.HandleRenameFile)
	fileGroup.POST("/:id/open", handlers.Upload.HandleOpenFile)

	// Autosave snapshots
	apiGroup.GET("/snapshots", handlers.Session.HandleListSnapshots)
	apiGroup.POST("/snapshots/:id/resume", handlers.Session.HandleResumeSession)

	// Editing sessions
	sessionGroup := apiGroup.Group("/sessions")
	sessionGroup.POST("", handlers.Session.HandleCreateSession)
	sessionGroup.GET("", handlers.Session.HandleListSessions)
	sessionGroup.GET("/:id", handlers.Session.HandleGetSession)
	sessionGroup.DELETE("/:id", handlers.Session.HandleCloseSession)
	sessionGroup.POST("/:id/keepalive", handlers.Session.HandleSessionKeepAlive)
	sessionGroup.GET("/:id/history", handlers.Session.HandleGetHistory)
	sessionGroup.GET("/:id/validate", handlers.Session.HandleValidate)
	sessionGroup.GET("/:id/export", handlers.Session.HandleExport)
	sessionGroup.GET("/:id/project/msgpack", handlers.Session.HandleProjectMsgpack)
	sessionGroup.POST("/:id/save", handlers.Session.HandleSave)
	sessionGroup.GET("/:id/journal", handlers.Session.HandleGetJournal)
	sessionGroup.GET("/:id/catalog", handlers.Catalog.HandleGetSessionCatalog)

	// Structural edits
	sessionGroup.POST("/:id/actions", handlers.Edit.HandleDispatch)
	sessionGroup.POST("/:id/components", handlers.Edit.HandlePlaceComponent)
	sessionGroup.POST("/:id/undo", handlers.Edit.HandleUndo)
	sessionGroup.POST("/:id/redo", handlers.Edit.HandleRedo)
	sessionGroup.GET("/:id/preview/component", handlers.Edit.HandlePreviewComponent)
	sessionGroup.GET("/:id/preview/segment", handlers.Edit.HandlePreviewSegment)
	sessionGroup.GET("/:id/links", handlers.Edit.HandleLinkState)
	sessionGroup.POST("/:id/links/start", handlers.Edit.HandleStartLink)
	sessionGroup.POST("/:id/links/complete", handlers.Edit.HandleCompleteLink)
	sessionGroup.POST("/:id/links/cancel", handlers.Edit.HandleCancelLink)

	// WebSocket events
	apiGroup.GET("/ws/sessions/:id", handlers.WebSocket.HandleWebSocket)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler
}
