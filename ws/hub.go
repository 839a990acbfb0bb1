// Package ws pushes doubt room activity to connected browsers.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 256
)

// Message is the envelope of every frame sent to clients.
type Message struct {
	Type   string      `json:"type"`
	RoomID string      `json:"room_id,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	roomID uuid.UUID
	lobby  bool
	userID string
}

// Hub tracks clients watching a single room and clients watching the room
// list (the lobby).
type Hub struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]map[*Client]struct{}
	lobby  map[*Client]struct{}
	logger *slog.Logger
}

type Stats struct {
	Rooms        int `json:"rooms"`
	RoomClients  int `json:"room_clients"`
	LobbyClients int `json:"lobby_clients"`
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[uuid.UUID]map[*Client]struct{}),
		lobby:  make(map[*Client]struct{}),
		logger: logger,
	}
}

func (h *Hub) joinRoom(roomID uuid.UUID, userID string, conn *websocket.Conn) *Client {
	client := &Client{conn: conn, send: make(chan []byte, sendBuffer), roomID: roomID, userID: userID}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	return client
}

func (h *Hub) joinLobby(userID string, conn *websocket.Conn) *Client {
	client := &Client{conn: conn, send: make(chan []byte, sendBuffer), lobby: true, userID: userID}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lobby[client] = struct{}{}
	return client
}

func (h *Hub) leave(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client.lobby {
		if _, ok := h.lobby[client]; ok {
			delete(h.lobby, client)
			close(client.send)
		}
		return
	}
	clients, ok := h.rooms[client.roomID]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		close(client.send)
	}
	if len(clients) == 0 {
		delete(h.rooms, client.roomID)
	}
}

// NotifyRoom sends an event to everyone watching the room. Slow clients
// whose buffer is full miss the frame rather than blocking the caller.
func (h *Hub) NotifyRoom(roomID uuid.UUID, kind string, payload interface{}) {
	data, err := json.Marshal(Message{Type: kind, RoomID: roomID.String(), Data: payload})
	if err != nil {
		h.logger.Error("WebSocket message not encoded", "type", kind, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[roomID] {
		select {
		case client.send <- data:
		default:
		}
	}
}

func (h *Hub) NotifyLobby(kind string, payload interface{}) {
	data, err := json.Marshal(Message{Type: kind, Data: payload})
	if err != nil {
		h.logger.Error("WebSocket message not encoded", "type", kind, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.lobby {
		select {
		case client.send <- data:
		default:
		}
	}
}

func (h *Hub) GetStats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stats := Stats{Rooms: len(h.rooms), LobbyClients: len(h.lobby)}
	for _, clients := range h.rooms {
		stats.RoomClients += len(clients)
	}
	return stats
}

// readPump blocks until the peer goes away, then removes the client.
// Clients only listen; anything they send is discarded.
func (h *Hub) readPump(client *Client) {
	defer h.leave(client)
	client.conn.SetReadLimit(512)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendJSON(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
