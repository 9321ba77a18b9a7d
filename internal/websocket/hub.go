// Package websocket pushes pairing change notifications to open admin
// consoles so their listings can refetch.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Entities and actions carried in notifications.
const (
	EntityPairing = "pairing"

	ActionSaved       = "saved"
	ActionApproved    = "approved"
	ActionUnapproved  = "unapproved"
	ActionRescheduled = "rescheduled"
)

// Message tells clients which cached views are stale.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     string         `json:"id,omitempty"`
	Paths  []string       `json:"paths,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage builds a Message typed "<entity>_<action>".
func NewMessage(entity, action, id string, extra map[string]any) Message {
	return Message{
		Type:   entity + "_" + action,
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// PairingChanged names the admin views invalidated by a change to pairingID.
func PairingChanged(action, pairingID string, extra map[string]any) Message {
	msg := NewMessage(EntityPairing, action, pairingID, extra)
	msg.Paths = []string{"/admin", "/admin/pairings"}
	if pairingID != "" {
		msg.Paths = append(msg.Paths, "/admin/pairings/"+pairingID)
	}
	return msg
}

// Hub maintains the set of active clients and fans out messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", "user_id", c.userID, "clients", n)
}

// Unregister removes a client and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends msg to every client, dropping it for clients whose buffer is full.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("broadcast dropped", "type", msg.Type, "clients", dropped)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
