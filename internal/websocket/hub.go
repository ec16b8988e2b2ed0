package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/domain"
	"github.com/satriahrh/rolecall/domain/entities"
	"github.com/satriahrh/rolecall/domain/repositories"
	"github.com/satriahrh/rolecall/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks

	// Outbound messages buffered per client.
	sendBuffer = 256
)

// ClientIDKey is the echo context key carrying an authenticated client id
const ClientIDKey = "clientID"

// Hub maintains the set of active clients, one session each.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	stopped chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	upgrader       websocket.Upgrader
	roles          repositories.RoleRepository
	pipeline       *usecase.Pipeline
	defaultBackend repositories.Backend

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(
	roles repositories.RoleRepository,
	pipeline *usecase.Pipeline,
	defaultBackend repositories.Backend,
	allowedOrigins []string,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		roles:          roles,
		pipeline:       pipeline,
		defaultBackend: defaultBackend,
		logger:         logger,
	}
}

// originChecker allows requests without Origin header, any origin when the
// list contains "*", and otherwise exact matches only
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[strings.TrimRight(origin, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] {
			return true
		}
		return set[strings.TrimRight(origin, "/")]
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("connectionID", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, client.id)
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("connectionID", client.id))

		case <-ctx.Done():
			h.mu.RLock()
			for _, client := range h.clients {
				client.close()
			}
			h.mu.RUnlock()
			return
		}
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is a middleman between the websocket connection and its coordinator.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	// Closed when the connection is going away.
	done      chan struct{}
	closeOnce sync.Once

	// Connection ID for this client
	id string

	coordinator *Coordinator
	logger      *zap.Logger
}

// ServeWS upgrades the request and starts a new session for the peer.
func (h *Hub) ServeWS(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	id := uuid.NewString()
	logger := h.logger.With(zap.String("connectionID", id))
	if clientID, ok := c.Get(ClientIDKey).(string); ok && clientID != "" {
		logger = logger.With(zap.String("clientID", clientID))
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		id:     id,
		logger: logger,
	}
	session := entities.NewSession(id, string(h.defaultBackend))
	client.coordinator = NewCoordinator(session, h.roles, h.pipeline, client.emit, logger)

	select {
	case h.register <- client:
	case <-h.stopped:
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	client.coordinator.Start(context.Background())
	go client.writePump()
	go client.readPump()

	return nil
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// emit queues an event for the write pump; it gives up once the
// connection is closing
func (c *Client) emit(event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("Failed to marshal event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}

	select {
	case c.send <- payload:
	case <-c.done:
		c.logger.Debug("Dropping event for closed connection", zap.String("type", string(event.Type)))
	}
}

// readPump pumps messages from the websocket connection to the coordinator.
func (c *Client) readPump() {
	defer func() {
		c.close()
		c.coordinator.Close()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopped:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ctx := context.Background()
	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn("Ignoring non-text message", zap.Int("type", messageType))
			continue
		}
		c.coordinator.Handle(ctx, message)
	}
}

// writePump pumps messages from the coordinator to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
