package websocket

import (
	"log/slog"
	"sync"
)

// Message is a JSON frame pushed to connected pages.
type Message struct {
	Type  string         `json:"type"`
	Title string         `json:"title,omitempty"`
	Body  string         `json:"body,omitempty"`
	Icon  string         `json:"icon,omitempty"`
	Extra map[string]any `json:"extra,omitempty"`
}

const (
	TypeNotification = "notification"
	TypeAnnouncement = "announcement"
)

// NewNotification creates a Message the page renders as a local notification.
func NewNotification(title, body, icon string) Message {
	return Message{Type: TypeNotification, Title: title, Body: body, Icon: icon}
}

// NewAnnouncement creates a Message echoing a school-wide announcement.
func NewAnnouncement(title, body string) Message {
	return Message{Type: TypeAnnouncement, Title: title, Body: body}
}

// Hub maintains the set of active WebSocket clients, indexed by device.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("client registered", "device", c.deviceID)
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Buffer full, drop the message.
		}
	}
}

// SendTo delivers a message to every connection of one device and reports
// how many connections accepted it.
func (h *Hub) SendTo(deviceID string, msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		if c.deviceID != deviceID {
			continue
		}
		select {
		case c.send <- msg:
			delivered++
		default:
		}
	}
	return delivered
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
