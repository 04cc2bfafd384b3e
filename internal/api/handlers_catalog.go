// handlers_catalog.go - Component palette handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CatalogHandlerImpl implements the CatalogHandler interface
type CatalogHandlerImpl struct {
	sessionMgr SessionManager
}

// NewCatalogHandler creates a new catalog handler instance
func NewCatalogHandler(sessionMgr SessionManager) CatalogHandler {
	return &CatalogHandlerImpl{sessionMgr: sessionMgr}
}

// HandleGetCatalog returns the base component palette
func (h *CatalogHandlerImpl) HandleGetCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessionMgr.Catalog().Model())
}

// HandleGetSessionCatalog returns the palette of a session including its
// function blocks
func (h *CatalogHandlerImpl) HandleGetSessionCatalog(c echo.Context) error {
	id := c.Param("id")
	cat, err := h.sessionMgr.SessionCatalog(id)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, cat.Model())
}
