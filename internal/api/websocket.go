package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/log-viewer/backend/internal/logging"
	"github.com/log-viewer/backend/internal/models"
	"github.com/log-viewer/backend/internal/storage"
	"github.com/log-viewer/backend/internal/tools"
)

// WebSocket message types for the project feed
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected   = "connected"
	MsgTypeLogIngested = "log:ingested"
	MsgTypeError       = "error"
	MsgTypePong        = "pong"
)

const (
	feedSendBuffer   = 16
	feedWriteTimeout = 10 * time.Second
	feedBuildTimeout = 30 * time.Second
)

var wsLogger = logging.New("WebSocket")

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ConnectedPayload is sent once after the upgrade
type ConnectedPayload struct {
	ClientID  string `json:"clientId"`
	ProjectID string `json:"projectId"`
}

// LogIngestedPayload announces a new log with its newest entries, compact
type LogIngestedPayload struct {
	Log          *models.LogInfo        `json:"log"`
	Entries      []models.RenderedEntry `json:"entries"`
	TotalEntries int                    `json:"totalEntries"`
}

// WebSocket error response
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type feedClient struct {
	id        string
	projectID string
	conn      *websocket.Conn
	send      chan WSMessage
}

// FeedHub fans ingest events out to the websocket clients watching a project
type FeedHub struct {
	store          storage.Store
	service        *tools.Service
	upgrader       websocket.Upgrader
	latestEntries  int
	maxMessageSize int64

	mu      sync.RWMutex
	clients map[string]map[string]*feedClient // project ID -> client ID
}

// NewFeedHub creates a feed hub. latestEntries caps the entries carried by a
// log:ingested message; maxMessageSize caps inbound client messages in bytes.
func NewFeedHub(store storage.Store, service *tools.Service, latestEntries int, maxMessageSize int64) *FeedHub {
	return &FeedHub{
		store:          store,
		service:        service,
		latestEntries:  latestEntries,
		maxMessageSize: maxMessageSize,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		clients: make(map[string]map[string]*feedClient),
	}
}

// HandleProjectFeed upgrades the connection and streams the project's events
func (hub *FeedHub) HandleProjectFeed(c echo.Context) error {
	projectID := c.Param("id")
	if _, err := hub.store.GetProject(c.Request().Context(), projectID); err != nil {
		return storeError(err, "project", projectID)
	}

	ws, err := hub.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	if hub.maxMessageSize > 0 {
		ws.SetReadLimit(hub.maxMessageSize)
	}

	client := &feedClient{
		id:        uuid.NewString(),
		projectID: projectID,
		conn:      ws,
		send:      make(chan WSMessage, feedSendBuffer),
	}
	hub.register(client)
	defer hub.unregister(client)

	go client.writePump()

	wsLogger.Infof("client %s connected to project %s", client.id, projectID)
	client.enqueue(WSMessage{
		Type:      MsgTypeConnected,
		ID:        client.id,
		Payload:   mustJSON(ConnectedPayload{ClientID: client.id, ProjectID: projectID}),
		Timestamp: time.Now().UnixMilli(),
	})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLogger.Warnf("client %s connection error: %v", client.id, err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			client.enqueue(WSMessage{Type: MsgTypePong, ID: msg.ID, Timestamp: time.Now().UnixMilli()})
		default:
			client.enqueue(errorMessage("Unknown message type: "+msg.Type, "INVALID_TYPE"))
		}
	}

	wsLogger.Infof("client %s disconnected", client.id)
	return nil
}

// LogIngested implements IngestNotifier. The payload is built in the
// background so ingestion never waits on feed clients.
func (hub *FeedHub) LogIngested(ctx context.Context, info *models.LogInfo) {
	if hub.ClientCount(info.ProjectID) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), feedBuildTimeout)
		defer cancel()

		msg, err := hub.ingestedMessage(ctx, info)
		if err != nil {
			wsLogger.Errorf("building feed message for log %s: %v", info.ID, err)
			return
		}
		n := hub.Broadcast(info.ProjectID, msg)
		wsLogger.Debugf("announced log %s to %d clients", info.ID, n)
	}()
}

func (hub *FeedHub) ingestedMessage(ctx context.Context, info *models.LogInfo) (WSMessage, error) {
	limit := hub.latestEntries
	res, err := hub.service.EntriesLatest(ctx, tools.EntriesLatestArgs{
		ProjectID: info.ProjectID,
		LogID:     info.ID,
		Verbosity: string(models.VerbosityCompact),
		Limit:     &limit,
	})
	if err != nil {
		return WSMessage{}, err
	}

	return WSMessage{
		Type: MsgTypeLogIngested,
		ID:   info.ID,
		Payload: mustJSON(LogIngestedPayload{
			Log:          info,
			Entries:      res.Entries,
			TotalEntries: res.TotalMatches,
		}),
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Broadcast queues msg for every client of a project and returns how many
// clients took it. Clients whose buffer is full miss the message.
func (hub *FeedHub) Broadcast(projectID string, msg WSMessage) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	n := 0
	for _, client := range hub.clients[projectID] {
		if client.enqueue(msg) {
			n++
		} else {
			wsLogger.Warnf("client %s is slow, dropped %s", client.id, msg.Type)
		}
	}
	return n
}

// ClientCount returns the number of clients watching a project
func (hub *FeedHub) ClientCount(projectID string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients[projectID])
}

func (hub *FeedHub) register(client *feedClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	clients, ok := hub.clients[client.projectID]
	if !ok {
		clients = make(map[string]*feedClient)
		hub.clients[client.projectID] = clients
	}
	clients[client.id] = client
}

// unregister removes the client and closes its send channel. Holding the
// write lock guarantees no Broadcast is sending to it.
func (hub *FeedHub) unregister(client *feedClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	clients := hub.clients[client.projectID]
	delete(clients, client.id)
	if len(clients) == 0 {
		delete(hub.clients, client.projectID)
	}
	close(client.send)
}

func (client *feedClient) enqueue(msg WSMessage) bool {
	select {
	case client.send <- msg:
		return true
	default:
		return false
	}
}

func (client *feedClient) writePump() {
	for msg := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := client.conn.WriteJSON(msg); err != nil {
			wsLogger.Warnf("failed to send to client %s: %v", client.id, err)
			return
		}
	}
}

func errorMessage(message, code string) WSMessage {
	return WSMessage{
		Type:      MsgTypeError,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: message,
			Code:    code,
		}),
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
