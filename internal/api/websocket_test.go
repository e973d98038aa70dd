package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedServer(t *testing.T) (*httptest.Server, *FeedHub, *Handlers) {
	t.Helper()
	svc, store := newTestService(t)
	hub := NewFeedHub(store, svc, 2, 64*1024)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	handlers := NewHandlers(&Dependencies{Store: store, Service: svc, Hub: hub})
	RegisterWebSocketRoutes(e, handlers)
	RegisterRoutes(e, handlers)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, hub, handlers
}

func dialFeed(t *testing.T, srv *httptest.Server, projectID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/projects/" + projectID
	return websocket.DefaultDialer.Dial(url, nil)
}

func readMessage(t *testing.T, ws *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func TestFeedHub_ConnectAndPing(t *testing.T) {
	srv, hub, _ := newFeedServer(t)

	ws, _, err := dialFeed(t, srv, "p1")
	require.NoError(t, err)
	defer ws.Close()

	msg := readMessage(t, ws)
	assert.Equal(t, MsgTypeConnected, msg.Type)
	var connected ConnectedPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &connected))
	assert.Equal(t, "p1", connected.ProjectID)
	assert.NotEmpty(t, connected.ClientID)
	assert.Equal(t, 1, hub.ClientCount("p1"))

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing, ID: "42"}))
	pong := readMessage(t, ws)
	assert.Equal(t, MsgTypePong, pong.Type)
	assert.Equal(t, "42", pong.ID)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: "upload:init"}))
	bad := readMessage(t, ws)
	assert.Equal(t, MsgTypeError, bad.Type)
	var errPayload WSErrorResponse
	require.NoError(t, json.Unmarshal(bad.Payload, &errPayload))
	assert.Equal(t, "INVALID_TYPE", errPayload.Code)

	ws.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount("p1") == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestFeedHub_UnknownProject(t *testing.T) {
	srv, _, _ := newFeedServer(t)

	_, resp, err := dialFeed(t, srv, "nope")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFeedHub_AnnouncesIngestedLogs(t *testing.T) {
	srv, hub, _ := newFeedServer(t)

	watcher, _, err := dialFeed(t, srv, "p1")
	require.NoError(t, err)
	defer watcher.Close()
	readMessage(t, watcher)

	other, _, err := dialFeed(t, srv, "p2")
	require.NoError(t, err)
	defer other.Close()
	readMessage(t, other)

	body := "[2025-01-02, 08:00:00] [INFO] first\n" +
		"[2025-01-02, 08:00:01] [WARN] second\n" +
		"[2025-01-02, 08:00:02] [ERROR] third - {\"retry\":true}\n"
	resp, err := http.Post(srv.URL+"/api/projects/p1/logs?name=fresh.log", "text/plain", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	msg := readMessage(t, watcher)
	assert.Equal(t, MsgTypeLogIngested, msg.Type)

	var payload LogIngestedPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	require.NotNil(t, payload.Log)
	assert.Equal(t, "fresh.log", payload.Log.Name)
	assert.Equal(t, msg.ID, payload.Log.ID)
	assert.Equal(t, 3, payload.TotalEntries)
	require.Len(t, payload.Entries, 2)
	assert.Equal(t, "third", payload.Entries[0].Message)
	assert.Empty(t, payload.Entries[0].DataPreview, "compact entries carry no data preview")
	assert.Equal(t, "second", payload.Entries[1].Message)

	// p2 watchers hear nothing about p1.
	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var stray WSMessage
	assert.Error(t, other.ReadJSON(&stray))

	assert.Equal(t, 0, hub.Broadcast("p3", WSMessage{Type: MsgTypePong}))
}

func TestFeedHub_LogIngestedWithoutClients(t *testing.T) {
	svc, store := newTestService(t)
	hub := NewFeedHub(store, svc, 2, 0)

	info := store.AddLog("p1", "log-quiet", "quiet.log", sampleLog)
	hub.LogIngested(context.Background(), info)

	assert.Equal(t, uint64(0), svc.CacheStats().Misses, "no clients means nothing is parsed")
}
