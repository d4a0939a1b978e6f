package services

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is a realtime message pushed over a user's private channel or
// broadcast to everyone connected.
type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

const (
	EventNewNotification       = "new_notification"
	EventAnalyticsUpdate       = "analytics_update"
	EventAccountStatusChanged  = "account_status_changed"
	EventUserListUpdated       = "user_list_updated"
	EventApkListUpdated        = "apk_list_updated"
	EventMaintenanceModeChange = "maintenance_mode_changed"
)

type addressedEvent struct {
	userID string // empty means broadcast
	event  Event
}

// EventHub fans realtime events out to connected clients. Each client
// joins the room of exactly one user id; delivery is at-most-once and
// silently dropped for users who are not connected — the durable
// user_notifications rows remain the source of truth.
type EventHub struct {
	mu    sync.RWMutex
	rooms map[string]map[*websocket.Conn]bool
	ch    chan addressedEvent
}

func NewEventHub() *EventHub {
	return &EventHub{
		rooms: map[string]map[*websocket.Conn]bool{},
		ch:    make(chan addressedEvent, 64),
	}
}

func (h *EventHub) Run(ctx context.Context) {
	for {
		select {
		case msg := <-h.ch:
			h.deliver(msg)
		case <-ctx.Done():
			return
		}
	}
}

func (h *EventHub) deliver(msg addressedEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if msg.userID != "" {
		for conn := range h.rooms[msg.userID] {
			_ = conn.WriteJSON(msg.event)
		}
		return
	}
	for _, conns := range h.rooms {
		for conn := range conns {
			_ = conn.WriteJSON(msg.event)
		}
	}
}

// Push sends an event to one user's room. Dropped when the hub's
// buffer is full rather than blocking the caller.
func (h *EventHub) Push(userID string, event Event) {
	select {
	case h.ch <- addressedEvent{userID: userID, event: event}:
	default:
	}
}

// Broadcast sends an event to every connected client.
func (h *EventHub) Broadcast(event Event) {
	select {
	case h.ch <- addressedEvent{event: event}:
	default:
	}
}

func (h *EventHub) Join(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[userID] == nil {
		h.rooms[userID] = map[*websocket.Conn]bool{}
	}
	h.rooms[userID][conn] = true
}

func (h *EventHub) Leave(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[userID], conn)
	if len(h.rooms[userID]) == 0 {
		delete(h.rooms, userID)
	}
}

// Connected reports whether the user currently has at least one open
// connection.
func (h *EventHub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID]) > 0
}
