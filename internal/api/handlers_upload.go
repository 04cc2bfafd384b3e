// handlers_upload.go - Project file import and management handlers
package api

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/plc-ladder/backend/internal/format"
	"github.com/plc-ladder/backend/internal/storage"
)

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	store        storage.Store
	sessionMgr   SessionManager
	registry     *format.Registry
	allowedTypes map[string]bool // Empty allows every decodable type
}

// NewUploadHandler creates a new upload handler instance. allowedTypes lists
// the file extensions accepted for import; nil accepts any known format.
func NewUploadHandler(store storage.Store, sessionMgr SessionManager, allowedTypes []string) UploadHandler {
	h := &UploadHandlerImpl{
		store:        store,
		sessionMgr:   sessionMgr,
		registry:     format.GetGlobalRegistry(),
		allowedTypes: make(map[string]bool, len(allowedTypes)),
	}
	for _, ext := range allowedTypes {
		h.allowedTypes[strings.ToLower(ext)] = true
	}
	return h
}

// HandleImportFile accepts a project file as base64 JSON and saves it to storage
func (h *UploadHandlerImpl) HandleImportFile(c echo.Context) error {
	var req uploadFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}

	// Decode base64 content
	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}

	return h.importBytes(c, req.Name, decoded)
}

// HandleImportBinary accepts a raw project file upload (multipart/form-data)
func (h *UploadHandlerImpl) HandleImportBinary(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return NewBadRequestError("failed to read uploaded file", err)
	}

	return h.importBytes(c, file.Filename, data)
}

// importBytes checks that data decodes as a project before storing it.
func (h *UploadHandlerImpl) importBytes(c echo.Context, name string, data []byte) error {
	if ext := strings.ToLower(filepath.Ext(name)); len(h.allowedTypes) > 0 && !h.allowedTypes[ext] {
		return NewBadRequestError(fmt.Sprintf("file type %q is not allowed", ext), nil)
	}
	p, err := h.registry.DecodeFile(name, data)
	if err != nil {
		return NewBadRequestError("invalid project file", err)
	}

	info, err := h.store.SaveBytes(name, data)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}
	fmt.Printf("[Files] Imported %s as %s (%d rungs)\n", name, info.Format, len(p.Rungs))

	return c.JSON(http.StatusCreated, info)
}

// HandleGetRecentFiles returns the most recently stored project files
func (h *UploadHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return NewValidationError("limit")
		}
		limit = n
	}

	files, err := h.store.List(limit)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}

	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific file
func (h *UploadHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return fileError(err, id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile deletes a stored project file
func (h *UploadHandlerImpl) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return fileError(err, id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleRenameFile updates the name of a file
func (h *UploadHandlerImpl) HandleRenameFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req renameFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if req.Name == "" {
		return NewValidationError("name")
	}

	info, err := h.store.Rename(id, req.Name)
	if err != nil {
		return fileError(err, id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleOpenFile decodes a stored file and starts an editing session on it
func (h *UploadHandlerImpl) HandleOpenFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return fileError(err, id)
	}
	data, err := h.store.Read(id)
	if err != nil {
		return fileError(err, id)
	}

	p, err := h.registry.DecodeFile(info.Name, data)
	if err != nil {
		return NewBadRequestError("failed to decode project file", err)
	}

	sess, err := h.sessionMgr.Open(id, p)
	if err != nil {
		return NewBadRequestError("project cannot be opened", err)
	}

	if err := h.store.MarkImported(id); err != nil {
		fmt.Printf("[Files] Failed to mark %s imported: %v\n", id, err)
	}

	return c.JSON(http.StatusCreated, sess)
}

// Request/Response types

type uploadFileRequest struct {
	Name string `json:"name"`
	Data string `json:"data"` // Base64-encoded content
}

func (r *uploadFileRequest) validate() error {
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.Data == "" {
		return NewValidationError("data")
	}
	return nil
}

type renameFileRequest struct {
	Name string `json:"name"`
}
