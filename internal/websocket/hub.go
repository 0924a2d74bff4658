package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// Subscriber is a connection the hub can deliver events to. *Client is the
// production implementation; tests substitute their own.
type Subscriber interface {
	ID() string
	WorkspaceID() int32
	Send(data []byte) error
	Close() error
}

// room holds the live connections of one workspace
type room map[string]Subscriber

// Hub routes entity events to the devices of the workspace they belong to.
// Events never cross workspaces. Safe for concurrent use.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int32]room
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{rooms: make(map[int32]room)}
}

// Register adds a subscriber to its workspace room
func (h *Hub) Register(sub Subscriber) {
	h.mu.Lock()
	r, ok := h.rooms[sub.WorkspaceID()]
	if !ok {
		r = make(room)
		h.rooms[sub.WorkspaceID()] = r
	}
	r[sub.ID()] = sub
	h.mu.Unlock()

	log.Debug().
		Int32("workspace_id", sub.WorkspaceID()).
		Str("client_id", sub.ID()).
		Msg("WebSocket client registered")
}

// Unregister removes a subscriber; the last one out tears down the room
func (h *Hub) Unregister(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[sub.WorkspaceID()]
	if !ok {
		return
	}
	if _, exists := r[sub.ID()]; !exists {
		return
	}
	delete(r, sub.ID())
	if len(r) == 0 {
		delete(h.rooms, sub.WorkspaceID())
	}

	log.Debug().
		Int32("workspace_id", sub.WorkspaceID()).
		Str("client_id", sub.ID()).
		Msg("WebSocket client unregistered")
}

// Broadcast delivers an event to every device in one workspace. The event is
// serialized once; delivery runs outside the lock so a stalled connection
// cannot block registration.
func (h *Hub) Broadcast(workspaceID int32, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Int32("workspace_id", workspaceID).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	r := h.rooms[workspaceID]
	targets := make([]Subscriber, 0, len(r))
	for _, sub := range r {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	for _, sub := range targets {
		go func(s Subscriber) {
			if err := s.Send(data); err != nil {
				log.Warn().
					Err(err).
					Int32("workspace_id", workspaceID).
					Str("client_id", s.ID()).
					Msg("Failed to send to client")
			}
		}(sub)
	}

	log.Debug().
		Int32("workspace_id", workspaceID).
		Str("event_type", event.Type).
		Int("client_count", len(targets)).
		Msg("Broadcast event")
}

// ClientCount returns the number of devices connected to a workspace
func (h *Hub) ClientCount(workspaceID int32) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[workspaceID])
}

// TotalClientCount returns the number of connected devices across all
// workspaces
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, r := range h.rooms {
		total += len(r)
	}
	return total
}
