package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/plc-ladder/backend/internal/autosave"
	"github.com/plc-ladder/backend/internal/journal"
	"github.com/plc-ladder/backend/internal/ladder"
	"github.com/plc-ladder/backend/internal/models"
	"github.com/plc-ladder/backend/internal/session"
	"github.com/plc-ladder/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type fakeJournal struct {
	entries []journal.Entry
}

func (j *fakeJournal) Entries(_ context.Context, sessionID string, limit int) ([]journal.Entry, error) {
	var out []journal.Entry
	for _, e := range j.entries {
		if e.SessionID == sessionID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (j *fakeJournal) Stats(_ context.Context, sessionID string) (journal.Stats, error) {
	s := journal.Stats{ByType: map[string]int{}}
	for _, e := range j.entries {
		if e.SessionID != sessionID {
			continue
		}
		s.Total++
		if e.Accepted {
			s.Accepted++
		} else {
			s.Rejected++
		}
	}
	return s, nil
}

type fakeSnapshots map[string]autosave.Snapshot

func (f fakeSnapshots) Load(id string) (*autosave.Snapshot, error) {
	s, ok := f[id]
	if !ok {
		return nil, autosave.ErrSnapshotNotFound
	}
	return &s, nil
}

func (f fakeSnapshots) List() ([]autosave.Snapshot, error) {
	out := make([]autosave.Snapshot, 0, len(f))
	for _, s := range f {
		out = append(out, s)
	}
	return out, nil
}

type testServer struct {
	e     *echo.Echo
	mgr   *session.Manager
	store *testutil.MockStorage
}

func newTestServer(t *testing.T, deps Dependencies) *testServer {
	t.Helper()
	mgr := session.NewManager(session.Options{HistoryLimit: 10})
	t.Cleanup(mgr.CloseAll)
	store := testutil.NewMockStorage()

	deps.Store = store
	deps.SessionMgr = mgr
	deps.Version = "test"

	e := echo.New()
	SetupMiddleware(e)
	RegisterRoutes(e, NewHandlers(&deps), RouteOptions{AllowFileDeletion: true})
	return &testServer{e: e, mgr: mgr, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) create(t *testing.T, name string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/sessions", `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess models.EditSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	return sess.ID
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) session.Result {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res session.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	s.create(t, "A")

	rec := s.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test","sessions":1}`, rec.Body.String())
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	id := s.create(t, "Conveyor")

	rec := s.do(t, http.MethodGet, "/api/sessions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"projectName":"Conveyor"`)

	rec = s.do(t, http.MethodGet, "/api/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Session models.EditSession   `json:"session"`
		Project models.Project       `json:"project"`
		History models.HistoryStatus `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, id, got.Session.ID)
	assert.Len(t, got.Project.Rungs, 1)
	assert.Equal(t, 10, got.History.Limit)

	rec = s.do(t, http.MethodPost, "/api/sessions/"+id+"/keepalive", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)

	rec = s.do(t, http.MethodPost, "/api/sessions/"+id+"/keepalive", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDispatchAndHistory(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	id := s.create(t, "Line")
	base := "/api/sessions/" + id

	res := decodeResult(t, s.do(t, http.MethodPost, base+"/actions",
		`{"type":"ADD_COMPONENT","rungIndex":0,"component":{"type":"COIL","position":5}}`))
	assert.True(t, res.Accepted)
	assert.Equal(t, 1, res.Revision)
	require.Len(t, res.Project.Rungs[0].Components, 1)
	assert.Equal(t, 5, res.Project.Rungs[0].Components[0].Position)
	assert.Equal(t, 1, res.Project.Rungs[0].Components[0].Width)

	// Same column again is rejected but is not an HTTP error.
	res = decodeResult(t, s.do(t, http.MethodPost, base+"/actions",
		`{"type":"ADD_COMPONENT","rungIndex":0,"component":{"type":"COIL","position":5}}`))
	assert.False(t, res.Accepted)
	assert.Contains(t, res.Reason, "occupied")
	assert.Equal(t, 1, res.Revision)
	assert.Len(t, res.Project.Rungs[0].Components, 1)

	res = decodeResult(t, s.do(t, http.MethodPost, base+"/actions", `{"type":"DELETE_RUNG","rungIndex":0}`))
	assert.False(t, res.Accepted)

	rec := s.do(t, http.MethodPost, base+"/actions", `{"type":"EXPLODE"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, base+"/actions", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	res = decodeResult(t, s.do(t, http.MethodPost, base+"/undo", ""))
	assert.True(t, res.Accepted)
	assert.Empty(t, res.Project.Rungs[0].Components)
	assert.True(t, res.History.CanRedo)

	res = decodeResult(t, s.do(t, http.MethodPost, base+"/undo", ""))
	assert.False(t, res.Accepted)

	res = decodeResult(t, s.do(t, http.MethodPost, base+"/redo", ""))
	assert.True(t, res.Accepted)
	assert.Len(t, res.Project.Rungs[0].Components, 1)

	rec = s.do(t, http.MethodGet, base+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist models.HistoryStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.True(t, hist.CanUndo)
	assert.False(t, hist.CanRedo)
	assert.Equal(t, 3, hist.Revision)

	rec = s.do(t, http.MethodPost, "/api/sessions/nope/actions", `{"type":"ADD_RUNG"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceComponentAndCatalog(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	id := s.create(t, "Blocks")
	base := "/api/sessions/" + id

	res := decodeResult(t, s.do(t, http.MethodPost, base+"/components", `{"rungIndex":0,"type":"TON","position":2}`))
	assert.True(t, res.Accepted)
	comp := res.Project.Rungs[0].Components[0]
	assert.Equal(t, "TON", comp.Type)
	assert.Equal(t, 3, comp.Width)
	assert.NotEmpty(t, comp.ID)

	rec := s.do(t, http.MethodPost, base+"/components", `{"rungIndex":0,"type":"WIDGET","position":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, base+"/components", `{"rungIndex":0,"position":9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/sessions/nope/components", `{"rungIndex":0,"type":"COIL","position":9}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"CONTACT_NO"`)
	assert.NotContains(t, rec.Body.String(), `"pouId"`)

	pou := `{"type":"ADD_POU","pou":{"id":"fb1","name":"Debounce","type":"functionBlock",` +
		`"variables":{"input":[{"name":"IN","address":"I0","type":"BOOL"}],"output":[{"name":"Q","address":"Q0","type":"BOOL"}],"local":[]}}}`
	res = decodeResult(t, s.do(t, http.MethodPost, base+"/actions", pou))
	require.True(t, res.Accepted, res.Reason)

	rec = s.do(t, http.MethodGet, base+"/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pouId":"fb1"`)

	res = decodeResult(t, s.do(t, http.MethodPost, base+"/components", `{"rungIndex":0,"type":"FUNCTION_BLOCK","position":6,"pouId":"fb1"}`))
	assert.True(t, res.Accepted, res.Reason)
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	id := s.create(t, "Preview")
	base := "/api/sessions/" + id
	decodeResult(t, s.do(t, http.MethodPost, base+"/components", `{"rungIndex":0,"type":"TON","position":2}`))

	rec := s.do(t, http.MethodGet, base+"/preview/component?rung=0&column=3&type=COIL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var preview session.ComponentPreview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.False(t, preview.Free)
	assert.Equal(t, 5, preview.Nearest)

	rec = s.do(t, http.MethodGet, base+"/preview/component?rung=0&column=8&width=2", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.True(t, preview.Free)
	assert.Equal(t, 8, preview.Nearest)

	rec = s.do(t, http.MethodGet, base+"/preview/component?rung=4&column=1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, base+"/preview/component?rung=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, base+"/preview/segment?rung=0&column=3&row=1&shape=horizontal", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"allowed":false`)

	rec = s.do(t, http.MethodGet, base+"/preview/segment?rung=0&column=9&row=1&shape=vertical", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"allowed":true`)

	rec = s.do(t, http.MethodGet, base+"/preview/segment?rung=0&column=9&row=1&shape=zigzag", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLinkEndpoints(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	id := s.create(t, "Links")
	base := "/api/sessions/" + id
	for i := 0; i < 3; i++ {
		decodeResult(t, s.do(t, http.MethodPost, base+"/actions", `{"type":"ADD_RUNG"}`))
	}

	rec := s.do(t, http.MethodPost, base+"/links/complete", `{"rung":0,"column":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/links/start", `{"rung":3,"column":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"linking","rung":3,"column":2}`, rec.Body.String())

	res := decodeResult(t, s.do(t, http.MethodPost, base+"/links/complete", `{"rung":1,"column":5}`))
	require.True(t, res.Accepted, res.Reason)
	require.Len(t, res.Project.VerticalLinks, 1)
	link := res.Project.VerticalLinks[0]
	assert.Equal(t, 1, link.FromRung)
	assert.Equal(t, 5, link.FromPosition)
	assert.Equal(t, 3, link.ToRung)
	assert.Equal(t, 2, link.ToPosition)

	rec = s.do(t, http.MethodGet, base+"/links", "")
	assert.JSONEq(t, `{"state":"idle"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, base+"/links/start", `{"rung":9,"column":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.do(t, http.MethodPost, base+"/links/start", `{"rung":0,"column":2}`)
	rec = s.do(t, http.MethodPost, base+"/links/cancel", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, base+"/links", "")
	assert.JSONEq(t, `{"state":"idle"}`, rec.Body.String())
}

func TestValidateExportAndMsgpack(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	id := s.create(t, "Export Me")
	base := "/api/sessions/" + id
	decodeResult(t, s.do(t, http.MethodPost, base+"/actions",
		`{"type":"ADD_COMPONENT","rungIndex":0,"component":{"type":"CONTACT_NO","position":1,"variables":{"address":"Start"}}}`))
	decodeResult(t, s.do(t, http.MethodPost, base+"/actions",
		`{"type":"ADD_COMPONENT","rungIndex":0,"component":{"type":"COIL","position":4,"variables":{"address":"Motor"}}}`))

	rec := s.do(t, http.MethodGet, base+"/validate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":true`)

	rec = s.do(t, http.MethodGet, base+"/export?format=ll", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), `Export_Me.ll`)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PROJECT: Export Me\n"))
	assert.Contains(t, rec.Body.String(), "COIL 4")

	rec = s.do(t, http.MethodGet, base+"/export?format=st", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PROGRAM Export_Me")
	assert.Contains(t, rec.Body.String(), "Motor := TRUE;")

	rec = s.do(t, http.MethodGet, base+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name": "Export Me"`)

	rec = s.do(t, http.MethodGet, base+"/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, base+"/project/msgpack", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))
	var doc struct {
		Revision int            `msgpack:"revision"`
		Project  models.Project `msgpack:"project"`
	}
	dec := msgpack.NewDecoder(bytes.NewReader(rec.Body.Bytes()))
	dec.SetCustomStructTag("json")
	require.NoError(t, dec.Decode(&doc))
	assert.Equal(t, 2, doc.Revision)
	assert.Equal(t, "Export Me", doc.Project.Name)
	assert.Len(t, doc.Project.Rungs[0].Components, 2)
}

func TestSave(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	id := s.create(t, "Saved")
	base := "/api/sessions/" + id
	decodeResult(t, s.do(t, http.MethodPost, base+"/actions",
		`{"type":"ADD_COMPONENT","rungIndex":0,"component":{"type":"COIL","position":2}}`))

	rec := s.do(t, http.MethodPost, base+"/save", `{"format":"ll"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var info models.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "Saved.ll", info.Name)

	sess, _ := s.mgr.Get(id)
	assert.Equal(t, info.ID, sess.FileID)

	// A later save without arguments overwrites the same file.
	decodeResult(t, s.do(t, http.MethodPost, base+"/actions",
		`{"type":"ADD_COMPONENT","rungIndex":0,"component":{"type":"COIL","position":7}}`))
	rec = s.do(t, http.MethodPost, base+"/save", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, s.store.GetFileCount())
	data, err := s.store.GetFileData(info.ID)
	require.NoError(t, err)
	assert.Contains(t, string(data), "COIL 7")

	rec = s.do(t, http.MethodPost, base+"/save", `{"name":"copy","format":"json"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"copy.json"`)
	assert.Equal(t, 2, s.store.GetFileCount())

	rec = s.do(t, http.MethodPost, base+"/save", `{"fileId":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodPost, base+"/save", `{"name":"x","format":"pdf"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJournalEndpoint(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, Dependencies{})
		id := s.create(t, "J")
		rec := s.do(t, http.MethodGet, "/api/sessions/"+id+"/journal", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		j := &fakeJournal{entries: []journal.Entry{
			{SessionID: "s1", Kind: journal.KindOpen, Accepted: true},
			{SessionID: "s1", Kind: journal.KindDispatch, ActionType: "ADD_RUNG", Accepted: true},
			{SessionID: "s1", Kind: journal.KindDispatch, ActionType: "DELETE_RUNG"},
			{SessionID: "s2", Kind: journal.KindOpen, Accepted: true},
		}}
		s := newTestServer(t, Dependencies{Journal: j})

		rec := s.do(t, http.MethodGet, "/api/sessions/s1/journal?limit=2", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Entries []journal.Entry `json:"entries"`
			Stats   journal.Stats   `json:"stats"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Entries, 2)
		assert.Equal(t, 3, body.Stats.Total)
		assert.Equal(t, 1, body.Stats.Rejected)

		rec = s.do(t, http.MethodGet, "/api/sessions/s1/journal?limit=-1", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSnapshotEndpoints(t *testing.T) {
	p := ladder.NewProject("Recovered")
	snaps := fakeSnapshots{"old-session": {SessionID: "old-session", Revision: 7, SavedAt: time.Now(), Project: p}}
	s := newTestServer(t, Dependencies{Snapshots: snaps})

	rec := s.do(t, http.MethodGet, "/api/snapshots", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"projectName":"Recovered"`)

	rec = s.do(t, http.MethodPost, "/api/snapshots/old-session/resume", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess models.EditSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "old-session", sess.ID)
	assert.Equal(t, 7, sess.Revision)

	rec = s.do(t, http.MethodPost, "/api/snapshots/old-session/resume", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/snapshots/unknown/resume", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	disabled := newTestServer(t, Dependencies{})
	rec = disabled.do(t, http.MethodGet, "/api/snapshots", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWebSocketSession(t *testing.T) {
	s := newTestServer(t, Dependencies{WSMaxMessageKB: 64})
	id := s.create(t, "Live")

	srv := httptest.NewServer(s.e)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/sessions/" + id

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, MsgTypeConnected, msg.Type)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing, ID: "p1"}))
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, MsgTypePong, msg.Type)
	assert.Equal(t, "p1", msg.ID)

	payload := json.RawMessage(`{"type":"ADD_COMPONENT","rungIndex":0,"component":{"type":"COIL","position":3}}`)
	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeAction, ID: "a1", Payload: payload}))

	// The event and the reply may arrive in either order.
	seen := map[string]WSMessage{}
	for len(seen) < 2 {
		var m WSMessage
		require.NoError(t, ws.ReadJSON(&m))
		seen[m.Type] = m
	}
	require.Contains(t, seen, MsgTypeResult)
	require.Contains(t, seen, MsgTypeEvent)
	assert.Equal(t, "a1", seen[MsgTypeResult].ID)

	var res session.Result
	require.NoError(t, json.Unmarshal(seen[MsgTypeResult].Payload, &res))
	assert.True(t, res.Accepted)

	var ev session.Event
	require.NoError(t, json.Unmarshal(seen[MsgTypeEvent].Payload, &ev))
	assert.Equal(t, session.EventDispatch, ev.Type)
	assert.Equal(t, "ADD_COMPONENT", ev.ActionType)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: "bogus", ID: "b1"}))
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, MsgTypeError, msg.Type)

	// Closing the session ends the connection after the closed event.
	require.NoError(t, s.mgr.Close(id))
	var closedSeen bool
	for {
		var m WSMessage
		if err := ws.ReadJSON(&m); err != nil {
			break
		}
		if m.Type == MsgTypeEvent && strings.Contains(string(m.Payload), `"type":"closed"`) {
			closedSeen = true
		}
	}
	assert.True(t, closedSeen)

	rec := s.do(t, http.MethodGet, "/api/ws/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
