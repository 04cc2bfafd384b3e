// handlers_edit.go - Structural edit, preview and link handlers
package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/plc-ladder/backend/internal/ladder"
	"github.com/plc-ladder/backend/internal/models"
	"github.com/plc-ladder/backend/internal/session"
)

// EditHandlerImpl implements the EditHandler interface
type EditHandlerImpl struct {
	sessionMgr SessionManager
}

// NewEditHandler creates a new edit handler instance
func NewEditHandler(sessionMgr SessionManager) EditHandler {
	return &EditHandlerImpl{sessionMgr: sessionMgr}
}

// HandleDispatch applies one action envelope to the session's project. A
// rejected action is reported in the result, not as an HTTP error.
func (h *EditHandlerImpl) HandleDispatch(c echo.Context) error {
	id := c.Param("id")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("failed to read request body", err)
	}
	action, err := ladder.DecodeAction(body)
	if err != nil {
		return NewBadRequestError("invalid action", err)
	}

	res, err := h.sessionMgr.Dispatch(id, action)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, res)
}

// HandlePlaceComponent instantiates a catalog tool on a rung
func (h *EditHandlerImpl) HandlePlaceComponent(c echo.Context) error {
	id := c.Param("id")

	var req placeComponentRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Type == "" {
		return NewValidationError("type")
	}

	res, err := h.sessionMgr.PlaceComponent(id, req.RungIndex, req.Type, req.Position, req.POUID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return NewNotFoundError("session", id)
		}
		return NewBadRequestError("cannot place component", err)
	}
	return c.JSON(http.StatusOK, res)
}

// HandleUndo steps the session back one snapshot
func (h *EditHandlerImpl) HandleUndo(c echo.Context) error {
	id := c.Param("id")
	res, err := h.sessionMgr.Undo(id)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, res)
}

// HandleRedo re-applies the last undone snapshot
func (h *EditHandlerImpl) HandleRedo(c echo.Context) error {
	id := c.Param("id")
	res, err := h.sessionMgr.Redo(id)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, res)
}

// HandlePreviewComponent reports whether a component fits at a column. The
// width comes from the width parameter or, failing that, the catalog entry
// of the type parameter.
func (h *EditHandlerImpl) HandlePreviewComponent(c echo.Context) error {
	id := c.Param("id")

	rung, err := intParam(c, "rung", 0)
	if err != nil {
		return err
	}
	column, err := intParam(c, "column", 1)
	if err != nil {
		return err
	}
	width, err := intParam(c, "width", 0)
	if err != nil {
		return err
	}
	if width < 1 {
		width = h.sessionMgr.Catalog().WidthOf(c.QueryParam("type"))
	}

	preview, err := h.sessionMgr.PreviewComponent(id, rung, column, width, c.QueryParam("exclude"))
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, preview)
}

// HandlePreviewSegment reports whether a segment may be drawn in a cell
func (h *EditHandlerImpl) HandlePreviewSegment(c echo.Context) error {
	id := c.Param("id")

	rung, err := intParam(c, "rung", 0)
	if err != nil {
		return err
	}
	column, err := intParam(c, "column", 1)
	if err != nil {
		return err
	}
	row, err := intParam(c, "row", 0)
	if err != nil {
		return err
	}
	shape := models.SegmentShape(c.QueryParam("shape"))
	if !shape.Valid() {
		return NewValidationError("shape")
	}

	ok, err := h.sessionMgr.PreviewSegment(id, rung, column, row, shape)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"column":  column,
		"row":     row,
		"shape":   shape,
		"allowed": ok,
	})
}

// HandleStartLink anchors a vertical link
func (h *EditHandlerImpl) HandleStartLink(c echo.Context) error {
	id := c.Param("id")

	var req linkPointRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if err := h.sessionMgr.StartLink(id, req.Rung, req.Column); err != nil {
		return sessionError(err, id)
	}
	return h.HandleLinkState(c)
}

// HandleCompleteLink finishes the link in progress and dispatches it
func (h *EditHandlerImpl) HandleCompleteLink(c echo.Context) error {
	id := c.Param("id")

	var req linkPointRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	res, err := h.sessionMgr.CompleteLink(id, req.Rung, req.Column)
	if err != nil {
		return sessionError(err, id)
	}
	return c.JSON(http.StatusOK, res)
}

// HandleCancelLink discards the link in progress
func (h *EditHandlerImpl) HandleCancelLink(c echo.Context) error {
	id := c.Param("id")
	if err := h.sessionMgr.CancelLink(id); err != nil {
		return sessionError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleLinkState returns the link builder state
func (h *EditHandlerImpl) HandleLinkState(c echo.Context) error {
	id := c.Param("id")
	state, rung, column, err := h.sessionMgr.LinkState(id)
	if err != nil {
		return sessionError(err, id)
	}

	resp := map[string]interface{}{"state": state}
	if state == ladder.LinkLinking {
		resp["rung"] = rung
		resp["column"] = column
	}
	return c.JSON(http.StatusOK, resp)
}

// Request/Response types

type placeComponentRequest struct {
	RungIndex int    `json:"rungIndex"`
	Type      string `json:"type"`
	Position  int    `json:"position"`
	POUID     string `json:"pouId,omitempty"`
}

type linkPointRequest struct {
	Rung   int `json:"rung"`
	Column int `json:"column"`
}

// Helper functions

// intParam parses an integer query parameter, returning def when absent.
func intParam(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, NewValidationError(name)
	}
	return n, nil
}
