package websocket

import (
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Time allowed for the first subscribe message
	subscribeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Send channel buffer size
	sendBufferSize = 64
)

// Client represents a WebSocket client connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger

	sessionID uuid.UUID
}

func (c *Client) remoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// readPump handles reading messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	// First message must arrive quickly and must be a subscribe
	c.conn.SetReadDeadline(time.Now().Add(subscribeWait))

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error",
					zap.Error(err),
					zap.String("remote_addr", c.remoteAddr()))
			}
			return
		}

		if msg.Type != "subscribe" {
			c.fail(msg.SessionID, "Unsupported message type: "+msg.Type)
			continue
		}

		if err := c.handleSubscribe(msg); err != nil {
			c.fail(msg.SessionID, err.Error())
		}
	}
}

// fail reports a rejected message. Before the first successful subscribe
// it also ends the connection; readPump keeps draining until the close.
func (c *Client) fail(sessionID, reason string) {
	msg := newMessage(MessageTypeError, sessionID, ErrorData{Reason: reason})
	if c.sessionID == uuid.Nil {
		c.hub.reject(c, msg)
		return
	}
	c.hub.sendTo(c, msg)
}

func (c *Client) handleSubscribe(msg ClientMessage) error {
	sessionID, err := uuid.Parse(msg.SessionID)
	if err != nil {
		return errInvalidSessionID
	}

	ev, err := c.hub.source.Evaluate(sessionID)
	if err != nil {
		return errUnknownSession
	}

	if !c.hub.follow(c, sessionID) {
		return errHubStopped
	}

	if c.sessionID == uuid.Nil {
		// Subscribed, from now on only the pong deadline applies
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.conn.SetPongHandler(func(string) error {
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
	}
	c.sessionID = sessionID

	c.hub.sendTo(c, newMessage(MessageTypeSubscribed, sessionID.String(), ev))
	c.logger.Debug("WebSocket client subscribed",
		zap.String("remote_addr", c.remoteAddr()),
		zap.String("session_id", sessionID.String()))
	return nil
}

// writePump handles writing messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles WebSocket upgrade requests
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader().Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("WebSocket upgrade error",
			zap.Error(err),
			zap.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: hub.logger,
	}

	if !hub.join(client) {
		conn.Close()
		return
	}

	// Start read and write pumps in separate goroutines
	go client.writePump()
	go client.readPump()
}

// SetAllowedOrigins restricts upgrades to the given origins. An empty
// list or "*" allows any origin.
func (h *Hub) SetAllowedOrigins(origins []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.origins = slices.Clone(origins)
}

func (h *Hub) upgrader() *websocket.Upgrader {
	h.mu.RLock()
	origins := h.origins
	h.mu.RUnlock()

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(origins) == 0 || slices.Contains(origins, "*") {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, origin)
		},
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stop:
		return false
	}
}

func (h *Hub) follow(c *Client, sessionID uuid.UUID) bool {
	select {
	case h.subscribe <- subscription{client: c, sessionID: sessionID}:
		return true
	case <-h.stop:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stop:
	}
}
