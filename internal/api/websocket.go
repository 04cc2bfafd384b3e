package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/plc-ladder/backend/internal/ladder"
	"github.com/plc-ladder/backend/internal/session"
)

// WebSocket message types for the session protocol
const (
	// Client -> Server messages
	MsgTypeAction = "action"
	MsgTypeUndo   = "undo"
	MsgTypeRedo   = "redo"
	MsgTypePing   = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeEvent     = "event"
	MsgTypeResult    = "result"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"` // Echoed back on the reply to a client message
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WebSocket error response
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler streams session events to clients and accepts edits
type WebSocketHandler struct {
	sessionMgr SessionManager
	upgrader   websocket.Upgrader
	readLimit  int64
}

// NewWebSocketHandler creates a new WebSocket session handler. maxMessageKB
// bounds the size of client messages; zero leaves it unbounded.
func NewWebSocketHandler(sessionMgr SessionManager, maxMessageKB int) *WebSocketHandler {
	return &WebSocketHandler{
		sessionMgr: sessionMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		readLimit: int64(maxMessageKB) * 1024,
	}
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) send(msg WSMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
	}
}

func (c *wsConn) sendError(id, message, code string) {
	c.send(WSMessage{
		Type: MsgTypeError,
		ID:   id,
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: message,
			Code:    code,
		}),
	})
}

// HandleWebSocket upgrades the connection and serves one session until the
// client disconnects or the session closes.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	id := c.Param("id")

	events, cancel, err := wsh.sessionMgr.Subscribe(id)
	if err != nil {
		return sessionError(err, id)
	}
	defer cancel()

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	if wsh.readLimit > 0 {
		ws.SetReadLimit(wsh.readLimit)
	}

	fmt.Printf("[WebSocket %s] Client connected\n", shortID(id))
	conn := &wsConn{ws: ws}

	p, perr := wsh.sessionMgr.Project(id)
	hist, herr := wsh.sessionMgr.History(id)
	if perr != nil || herr != nil {
		conn.sendError("", "session not found", "NOT_FOUND")
		return nil
	}
	conn.send(WSMessage{
		Type: MsgTypeConnected,
		Payload: mustJSON(map[string]interface{}{
			"sessionId": id,
			"project":   p,
			"history":   hist,
		}),
	})

	// Forward events until the subscription ends, then drop the connection
	// so the read loop returns.
	go func() {
		for ev := range events {
			conn.send(WSMessage{Type: MsgTypeEvent, Payload: mustJSON(ev)})
		}
		conn.mu.Lock()
		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
		conn.mu.Unlock()
		ws.Close()
	}()

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				fmt.Printf("[WebSocket %s] Connection error: %v\n", shortID(id), err)
			}
			break
		}
		wsh.handleMessage(conn, id, msg)
	}

	fmt.Printf("[WebSocket %s] Client disconnected\n", shortID(id))
	return nil
}

func (wsh *WebSocketHandler) handleMessage(conn *wsConn, id string, msg WSMessage) {
	var (
		res session.Result
		err error
	)

	switch msg.Type {
	case MsgTypePing:
		wsh.sessionMgr.TouchSession(id)
		conn.send(WSMessage{Type: MsgTypePong, ID: msg.ID})
		return
	case MsgTypeAction:
		action, decErr := ladder.DecodeAction(msg.Payload)
		if decErr != nil {
			conn.sendError(msg.ID, decErr.Error(), "INVALID_PAYLOAD")
			return
		}
		res, err = wsh.sessionMgr.Dispatch(id, action)
	case MsgTypeUndo:
		res, err = wsh.sessionMgr.Undo(id)
	case MsgTypeRedo:
		res, err = wsh.sessionMgr.Redo(id)
	default:
		conn.sendError(msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		return
	}

	if err != nil {
		apiErr := sessionError(err, id)
		conn.sendError(msg.ID, apiErr.Message, apiErr.Code)
		return
	}
	conn.send(WSMessage{Type: MsgTypeResult, ID: msg.ID, Payload: mustJSON(res)})
}

// Helper methods

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// shortID safely truncates an ID for logging.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
