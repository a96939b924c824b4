package live

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/peterneubauer/savethesquare/internal/metrics"
)

const (
	// Ping interval (30 seconds)
	pingInterval = 30 * time.Second

	// Pong wait timeout (60 seconds)
	pongWait = 60 * time.Second

	// Write timeout (10 seconds)
	writeTimeout = 10 * time.Second

	// Largest client message accepted
	maxMessageSize = 64 * 1024

	sendBufferSize = 64
)

// Message types exchanged over the live connection
const (
	MessageClick            = "click"
	MessageText             = "text"
	MessageViewport         = "viewport"
	MessageClear            = "clear"
	MessagePing             = "ping"
	MessagePong             = "pong"
	MessageSelection        = "selection"
	MessageClickResult      = "click_result"
	MessageDonationsUpdated = "donations_updated"
	MessageError            = "error"
)

// Message envelope for every frame in both directions
type Message struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrorMessage sent to the client when a message cannot be handled
type ErrorMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// MessageHandler processes messages read from a client
type MessageHandler interface {
	HandleMessage(c *Client, msg *Message)
}

// Client one websocket connection bound to a selection session
type Client struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
	hub       *Hub

	closeMu  sync.Mutex
	onClose  []func()
	isClosed bool
}

// Hub tracks live connections and fans out messages
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

// NewHub creates a hub; call Run to start it
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop; it returns after Stop
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				metrics.LiveConnections.Dec()
			}
			h.mu.Unlock()
			log.Printf("🔌 Live connection closed: session=%s", c.sessionID)

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				h.deliverLocked(c, message)
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
				metrics.LiveConnections.Dec()
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop ends Run and closes every connection
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast queues a message for every connection
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// BroadcastJSON marshals and broadcasts a typed message
func (h *Hub) BroadcastJSON(msgType string, payload interface{}) {
	b, err := encode(msgType, "", payload)
	if err != nil {
		log.Printf("⚠️ live broadcast encode failed (%s): %v", msgType, err)
		return
	}
	h.Broadcast(b)
}

// SendToSession delivers a message to every connection of a session
func (h *Hub) SendToSession(sessionID string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.sessionID == sessionID {
			h.deliverLocked(c, message)
		}
	}
}

// add registers a client before its pumps start; false once the hub is stopped
func (h *Hub) add(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return false
	default:
	}
	h.clients[c] = true
	metrics.LiveConnections.Inc()
	log.Printf("🔌 Live connection registered: session=%s", c.sessionID)
	return true
}

// Count number of registered connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// deliverLocked drops connections whose buffer is full; caller holds h.mu
func (h *Hub) deliverLocked(c *Client, message []byte) {
	select {
	case c.send <- message:
	default:
		delete(h.clients, c)
		close(c.send)
		metrics.LiveConnections.Dec()
		log.Printf("⚠️ Live connection too slow, dropped: session=%s", c.sessionID)
	}
}

// NewUpgrader accepts the configured origins; "*" accepts any
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || origin == allowed {
					return true
				}
			}
			return false
		},
	}
}

// NewClient wraps an upgraded connection
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, sendBufferSize),
		hub:       hub,
	}
}

// SessionID selection session the connection belongs to
func (c *Client) SessionID() string { return c.sessionID }

// OnClose registers cleanup run once when the read loop ends
func (c *Client) OnClose(fn func()) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.isClosed {
		go fn()
		return
	}
	c.onClose = append(c.onClose, fn)
}

// Start registers the client and starts its pumps
func (c *Client) Start(handler MessageHandler) {
	if !c.hub.add(c) {
		_ = c.conn.Close()
		return
	}
	go c.writePump()
	go c.readPump(handler)
}

// SendJSON marshals a typed message and delivers it to this client only
func (c *Client) SendJSON(msgType, id string, payload interface{}) {
	b, err := encode(msgType, id, payload)
	if err != nil {
		log.Printf("⚠️ live message encode failed (%s): %v", msgType, err)
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.hub.clients[c] {
		c.hub.deliverLocked(c, b)
	}
}

// SendError reports a failed message to the client
func (c *Client) SendError(id, errMsg, code string) {
	b, err := json.Marshal(ErrorMessage{Type: MessageError, ID: id, Error: errMsg, Code: code})
	if err != nil {
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if c.hub.clients[c] {
		c.hub.deliverLocked(c, b)
	}
}

func (c *Client) readPump(handler MessageHandler) {
	defer func() {
		c.runOnClose()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		if err := c.conn.Close(); err != nil {
			log.Printf("⚠️ live connection close failed: %v", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ live connection error: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.SendError("", "invalid message format", "InvalidMessageFormat")
			continue
		}
		if msg.Type == MessagePing {
			c.SendJSON(MessagePong, msg.ID, nil)
			continue
		}
		handler.HandleMessage(c, &msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) runOnClose() {
	c.closeMu.Lock()
	fns := c.onClose
	c.onClose = nil
	c.isClosed = true
	c.closeMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func encode(msgType, id string, payload interface{}) ([]byte, error) {
	msg := Message{Type: msgType, ID: id}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Data = data
	}
	return json.Marshal(msg)
}
