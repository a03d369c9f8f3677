package websocket

import "time"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Session messages
	MessageTypeSubscribed     MessageType = "subscribed"
	MessageTypeSessionUpdated MessageType = "session_updated"
	MessageTypeSessionClosed  MessageType = "session_closed"

	// Catalog messages
	MessageTypeCatalogReloaded MessageType = "catalog_reloaded"

	MessageTypeError MessageType = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	SessionID string      `json:"session_id,omitempty"`
	Data      any         `json:"data,omitempty"`
}

// ClientMessage is what browsers send us. Only "subscribe" is understood.
type ClientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// CatalogReloadedData announces a new catalog version.
type CatalogReloadedData struct {
	Version  string `json:"version"`
	Addons   int    `json:"addons"`
	Warnings int    `json:"warnings"`
}

// ErrorData explains why a client message was rejected.
type ErrorData struct {
	Reason string `json:"reason"`
}

func newMessage(t MessageType, sessionID string, data any) Message {
	return Message{
		Type:      t,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Data:      data,
	}
}
