package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/your-org/telegram-auth/internal/utils/metrics"
)

// Event is a push message delivered to a client. "auth_status" with
// status "logged_out" and "session_status" with status "invalid" both
// make the browser treat its session as terminated.
type Event struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

const (
	EventTypeAuthStatus    = "auth_status"
	EventTypeSessionStatus = "session_status"

	StatusLoggedOut = "logged_out"
	StatusValid     = "valid"
	StatusInvalid   = "invalid"
)

type targetedEvent struct {
	telegramID int64
	payload    []byte
}

// Hub owns the mapping from identity to its live connections. A single
// goroutine (Run) applies every mutation, so interleaved
// connect/disconnect/notify cannot corrupt the sets; an identity's
// entry is dropped as soon as its last connection unregisters, keeping
// registry size proportional to live connections.
type Hub struct {
	clients     map[*Client]bool
	userClients map[int64]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	notify     chan targetedEvent

	mu     sync.RWMutex
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[int64]map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		notify:      make(chan targetedEvent),
		logger:      logger,
	}
}

// Run processes registrations, unregistrations and notifications until
// ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if !h.clients[client] {
				h.clients[client] = true
				set, ok := h.userClients[client.telegramID]
				if !ok {
					set = make(map[*Client]struct{})
					h.userClients[client.telegramID] = set
				}
				set[client] = struct{}{}
				metrics.WebsocketConnections.Inc()
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case ev := <-h.notify:
			h.mu.Lock()
			for client := range h.userClients[ev.telegramID] {
				select {
				case client.send <- ev.payload:
				default:
					// Send buffer full means the reader is gone;
					// drop the connection instead of retrying.
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// removeLocked detaches client from both maps and closes its send
// channel exactly once. Callers hold h.mu.
func (h *Hub) removeLocked(client *Client) {
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	close(client.send)
	metrics.WebsocketConnections.Dec()

	set := h.userClients[client.telegramID]
	delete(set, client)
	if len(set) == 0 {
		delete(h.userClients, client.telegramID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.removeLocked(client)
	}
}

// NotifyUser fans ev out to every live connection of telegramID.
// Connections that cannot accept the event are unregistered rather than
// treated as fatal.
func (h *Hub) NotifyUser(telegramID int64, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to serialize push event", zap.Error(err))
		return
	}
	h.notify <- targetedEvent{telegramID: telegramID, payload: payload}
}

// ConnectionsFor reports how many live connections telegramID has.
func (h *Hub) ConnectionsFor(telegramID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[telegramID])
}

// HasEntry reports whether the registry still holds an entry for
// telegramID at all.
func (h *Hub) HasEntry(telegramID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.userClients[telegramID]
	return ok
}
