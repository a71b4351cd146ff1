package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type client struct {
	id   string
	conn *websocket.Conn

	// writeMu serializes writes; gorilla connections allow one writer at a time.
	writeMu sync.Mutex

	mu       sync.Mutex
	userID   int64
	username string
	role     string
	rooms    map[string]struct{}
}

func (c *client) send(payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}

// Hub tracks connected sockets and fans events out to them. It is a best
// effort broadcaster: a client that cannot be written to is evicted, and no
// error ever reaches the code that emitted the event.
type Hub struct {
	logger    *zap.Logger
	upgrader  websocket.Upgrader
	heartbeat time.Duration

	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[*client]struct{}
}

func NewHub(logger *zap.Logger, allowedOrigins []string, heartbeat time.Duration) *Hub {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	h := &Hub{
		logger:    logger,
		heartbeat: heartbeat,
		clients:   make(map[string]*client),
		rooms:     make(map[string]map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// inboundMessage is what clients send over the socket.
type inboundMessage struct {
	Type     string `json:"type"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Room     string `json:"room"`
}

// HandleWS upgrades the request and services the connection until the peer
// goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		id:    uuid.NewString(),
		conn:  conn,
		rooms: make(map[string]struct{}),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.String("clientId", c.id),
		zap.Int("connectedClients", count),
	)

	_ = c.send(envelope("connection-success", map[string]any{
		"socketId": c.id,
		"message":  "Connected to POS server",
	}, time.Now()))

	done := make(chan struct{})
	defer close(done)
	go h.heartbeatLoop(c, done)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * h.heartbeat))
	})
	_ = conn.SetReadDeadline(time.Now().Add(2 * h.heartbeat))

	defer h.disconnect(c)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * h.heartbeat))
		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		h.handleMessage(c, msg)
	}
}

// heartbeatLoop keeps the connection alive through proxies and lets dead
// peers be detected by the read deadline.
func (h *Hub) heartbeatLoop(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) handleMessage(c *client, msg inboundMessage) {
	switch msg.Type {
	case "identify":
		c.mu.Lock()
		c.userID = msg.UserID
		c.username = msg.Username
		c.role = msg.Role
		c.mu.Unlock()
		h.logger.Info("websocket client identified",
			zap.String("clientId", c.id),
			zap.Int64("userId", msg.UserID),
			zap.String("username", msg.Username),
		)
		_ = c.send(envelope("identified", map[string]any{"socketId": c.id}, time.Now()))

	case "ping":
		_ = c.send(envelope("pong", nil, time.Now()))

	case "join-room":
		if msg.Room == "" {
			return
		}
		h.mu.Lock()
		if h.rooms[msg.Room] == nil {
			h.rooms[msg.Room] = make(map[*client]struct{})
		}
		h.rooms[msg.Room][c] = struct{}{}
		h.mu.Unlock()
		c.mu.Lock()
		c.rooms[msg.Room] = struct{}{}
		c.mu.Unlock()
		_ = c.send(envelope("room-joined", map[string]any{"room": msg.Room}, time.Now()))

	case "leave-room":
		if msg.Room == "" {
			return
		}
		h.mu.Lock()
		if members, ok := h.rooms[msg.Room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, msg.Room)
			}
		}
		h.mu.Unlock()
		c.mu.Lock()
		delete(c.rooms, msg.Room)
		c.mu.Unlock()
		_ = c.send(envelope("room-left", map[string]any{"room": msg.Room}, time.Now()))
	}
}

func (h *Hub) disconnect(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	count := len(h.clients)
	h.mu.Unlock()

	_ = c.conn.Close()
	h.logger.Info("websocket client disconnected",
		zap.String("clientId", c.id),
		zap.Int("connectedClients", count),
	)
}

// Emit broadcasts to every connected client. Implements the engine's event
// sink contract.
func (h *Hub) Emit(event string, data map[string]any) {
	payload := envelope(event, data, time.Now())

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(payload); err != nil {
			h.logger.Warn("websocket write failed, evicting client",
				zap.String("clientId", c.id),
				zap.String("event", event),
				zap.Error(err),
			)
			h.disconnect(c)
		}
	}
}

// EmitToRoom sends to the clients that joined the given room.
func (h *Hub) EmitToRoom(room, event string, data map[string]any) {
	payload := envelope(event, data, time.Now())

	h.mu.RLock()
	targets := make([]*client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(payload); err != nil {
			h.disconnect(c)
		}
	}
}

// EmitToClient sends to one socket by id. Returns false if the socket is not
// connected.
func (h *Hub) EmitToClient(clientID, event string, data map[string]any) bool {
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if err := c.send(envelope(event, data, time.Now())); err != nil {
		h.disconnect(c)
		return false
	}
	return true
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ClientInfo is the per-socket view reported by the status endpoint.
type ClientInfo struct {
	SocketID string   `json:"socketId"`
	UserID   int64    `json:"userId,omitempty"`
	Username string   `json:"username,omitempty"`
	Role     string   `json:"role,omitempty"`
	Rooms    []string `json:"rooms"`
}

// Snapshot lists the connected clients for the socket status endpoint.
func (h *Hub) Snapshot() []ClientInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ClientInfo, 0, len(h.clients))
	for _, c := range h.clients {
		c.mu.Lock()
		info := ClientInfo{
			SocketID: c.id,
			UserID:   c.userID,
			Username: c.username,
			Role:     c.role,
			Rooms:    make([]string, 0, len(c.rooms)),
		}
		for room := range c.rooms {
			info.Rooms = append(info.Rooms, room)
		}
		c.mu.Unlock()
		out = append(out, info)
	}
	return out
}
