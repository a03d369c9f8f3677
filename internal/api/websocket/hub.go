package websocket

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KevinKickass/AlarmConfigurator/internal/catalog"
	"github.com/KevinKickass/AlarmConfigurator/internal/selection"
)

// SessionSource evaluates sessions for subscribers. *selection.Manager
// implements it.
type SessionSource interface {
	Evaluate(id uuid.UUID) (*selection.Evaluation, error)
	Lookup(id uuid.UUID) (*selection.Session, error)
	EvaluateSession(s *selection.Session) (*selection.Evaluation, error)
}

var (
	errInvalidSessionID = errors.New("invalid session id")
	errUnknownSession   = errors.New("session not found")
	errHubStopped       = errors.New("server is shutting down")
)

type subscription struct {
	client    *Client
	sessionID uuid.UUID
}

// outbound is one queued message. Broadcasts share the queue with session
// messages so subscribers see them in publish order.
type outbound struct {
	sessionID uuid.UUID
	client    *Client
	all       bool
	message   Message

	// disconnect the client once message is queued
	closeAfter bool
}

// Hub maintains active WebSocket clients and routes session updates to
// the clients subscribed to that session.
type Hub struct {
	// Registered clients and the session each one follows
	clients map[*Client]uuid.UUID

	// Subscribers per session
	sessions map[uuid.UUID]map[*Client]bool

	// Messages for every client, one session or one client
	outbound chan outbound

	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu      sync.RWMutex
	origins []string

	source SessionSource
	logger *zap.Logger
}

// NewHub creates a new Hub instance
func NewHub(source SessionSource, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]uuid.UUID),
		sessions:   make(map[uuid.UUID]map[*Client]bool),
		outbound:   make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		source:     source,
		logger:     logger,
	}
}

// Run starts the hub's main event loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.done)
	h.logger.Info("WebSocket Hub started")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = uuid.Nil
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("WebSocket client registered",
				zap.String("remote_addr", client.remoteAddr()),
				zap.Int("total_clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if h.drop(client) {
				h.logger.Debug("WebSocket client unregistered",
					zap.String("remote_addr", client.remoteAddr()),
					zap.Int("total_clients", len(h.clients)))
			}
			h.mu.Unlock()

		case sub := <-h.subscribe:
			h.mu.Lock()
			if previous, ok := h.clients[sub.client]; ok {
				h.unfollow(sub.client, previous)
				h.clients[sub.client] = sub.sessionID
				if h.sessions[sub.sessionID] == nil {
					h.sessions[sub.sessionID] = make(map[*Client]bool)
				}
				h.sessions[sub.sessionID][sub.client] = true
			}
			h.mu.Unlock()

		case out := <-h.outbound:
			data, err := json.Marshal(out.message)
			if err != nil {
				h.logger.Error("Failed to marshal hub message", zap.Error(err))
				continue
			}

			h.mu.Lock()
			if out.all {
				for client := range h.clients {
					h.deliver(client, data)
				}
			} else if out.client != nil {
				if _, ok := h.clients[out.client]; ok {
					h.deliver(out.client, data)
					if out.closeAfter {
						h.drop(out.client)
					}
				}
			} else {
				for client := range h.sessions[out.sessionID] {
					h.deliver(client, data)
				}
			}
			h.mu.Unlock()

		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket Hub stopped")
			return
		}
	}
}

// deliver queues data for client; a client whose buffer is full is
// dropped. Caller holds mu.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.drop(client)
		h.logger.Warn("Client send buffer full, unregistering",
			zap.String("remote_addr", client.remoteAddr()))
	}
}

// drop removes client and closes its send channel. Caller holds mu.
func (h *Hub) drop(client *Client) bool {
	sessionID, ok := h.clients[client]
	if !ok {
		return false
	}
	h.unfollow(client, sessionID)
	delete(h.clients, client)
	close(client.send)
	return true
}

func (h *Hub) unfollow(client *Client, sessionID uuid.UUID) {
	subs, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(h.sessions, sessionID)
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	<-h.done
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(msg Message) {
	h.enqueue(outbound{all: true, message: msg})
}

// PublishSession sends msg to the subscribers of one session.
func (h *Hub) PublishSession(sessionID uuid.UUID, msg Message) {
	h.enqueue(outbound{sessionID: sessionID, message: msg})
}

func (h *Hub) sendTo(client *Client, msg Message) {
	h.enqueue(outbound{client: client, message: msg})
}

// reject sends a final error to client and disconnects it.
func (h *Hub) reject(client *Client, msg Message) {
	h.enqueue(outbound{client: client, message: msg, closeAfter: true})
}

func (h *Hub) enqueue(out outbound) {
	select {
	case h.outbound <- out:
	default:
		h.logger.Warn("Hub outbound channel full, message dropped",
			zap.String("message_type", string(out.message.Type)))
	}
}

// OnSessionChange pushes a fresh evaluation to the session's subscribers.
// Register it with selection.Manager.OnChange.
func (h *Hub) OnSessionChange(s *selection.Session) {
	if !h.hasSubscribers(s.ID) {
		return
	}
	h.publishEvaluation(s.ID, s)
}

// OnCatalogReload announces the new catalog and re-evaluates every
// followed session. Register it with catalog.Provider.OnReload after the
// session manager.
func (h *Hub) OnCatalogReload(snap *catalog.Snapshot) {
	h.Broadcast(newMessage(MessageTypeCatalogReloaded, "", CatalogReloadedData{
		Version:  snap.Version(),
		Addons:   snap.Len(),
		Warnings: len(snap.Warnings()),
	}))

	h.mu.RLock()
	followed := make([]uuid.UUID, 0, len(h.sessions))
	for id := range h.sessions {
		followed = append(followed, id)
	}
	h.mu.RUnlock()

	// Pushes are not client activity; idle sessions stay sweepable.
	for _, id := range followed {
		s, _ := h.source.Lookup(id)
		h.publishEvaluation(id, s)
	}
}

// publishEvaluation sends s's evaluation to its subscribers, or
// session_closed when s is nil or can no longer be evaluated.
func (h *Hub) publishEvaluation(sessionID uuid.UUID, s *selection.Session) {
	var (
		ev  *selection.Evaluation
		err error = selection.ErrSessionNotFound
	)
	if s != nil {
		ev, err = h.source.EvaluateSession(s)
	}
	if err != nil {
		h.logger.Debug("Session gone, notifying subscribers",
			zap.String("session_id", sessionID.String()),
			zap.Error(err))
		h.PublishSession(sessionID, newMessage(MessageTypeSessionClosed, sessionID.String(), nil))
		return
	}
	h.PublishSession(sessionID, newMessage(MessageTypeSessionUpdated, sessionID.String(), ev))
}

func (h *Hub) hasSubscribers(sessionID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID]) > 0
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns how many clients follow sessionID.
func (h *Hub) SubscriberCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
