package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sitesurvey/server/internal/observability"
)

// Message types pushed to the field UI.
const (
	WSTypeSaveStatus     = "save_status"
	WSTypeUploadProgress = "upload_progress"
	WSTypeError          = "error"
)

// StatusMessage is one message on the status stream.
type StatusMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// StatusClient is one connected UI.
type StatusClient struct {
	ID         string
	Conn       *websocket.Conn
	Send       chan []byte
	hub        *StatusHub
	mu         sync.Mutex
	closedOnce sync.Once
}

// StatusHub fans the save-status and upload-progress indicators out to
// every connected UI. The technician's phone and a supervisor's browser can
// both watch the same session.
type StatusHub struct {
	clients    map[*StatusClient]bool
	register   chan *StatusClient
	unregister chan *StatusClient
	broadcast  chan []byte
	mu         sync.RWMutex
	logger     *observability.Logger
}

// NewStatusHub creates a new StatusHub.
func NewStatusHub() *StatusHub {
	return &StatusHub{
		clients:    make(map[*StatusClient]bool),
		register:   make(chan *StatusClient),
		unregister: make(chan *StatusClient),
		broadcast:  make(chan []byte, 256),
		logger:     observability.GetLogger().WithField("component", "status-hub"),
	}
}

// Run starts the hub's main loop.
func (h *StatusHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debugf("Status client connected: %s", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			h.logger.Debugf("Status client disconnected: %s", client.ID)

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Buffer full; drop the slow client.
					go func(c *StatusClient) {
						h.unregister <- c
					}(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub.
func (h *StatusHub) Register(client *StatusClient) {
	h.register <- client
}

// Broadcast sends a message to every connected client.
func (h *StatusHub) Broadcast(msg StatusMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorf("Marshal status message: %v", err)
		return
	}
	h.broadcast <- data
}

// ClientCount returns the number of connected clients.
func (h *StatusHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NewClient creates a client bound to this hub.
func (h *StatusHub) NewClient(id string, conn *websocket.Conn) *StatusClient {
	return &StatusClient{
		ID:   id,
		Conn: conn,
		Send: make(chan []byte, 256),
		hub:  h,
	}
}

// Close closes the client connection.
func (c *StatusClient) Close() {
	c.closedOnce.Do(func() {
		c.hub.unregister <- c
		c.Conn.Close()
	})
}

// WritePump pumps hub messages to the websocket connection.
func (c *StatusClient) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.mu.Lock()
			err := c.Conn.WriteMessage(websocket.TextMessage, message)
			c.mu.Unlock()
			if err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump drains client messages until the connection closes. The stream
// is one-way; inbound payloads are ignored.
func (c *StatusClient) ReadPump() {
	defer c.Close()

	c.Conn.SetReadLimit(4 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}
