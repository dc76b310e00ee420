package sessionsync

import (
	"log/slog"
	"sync"
	"time"

	"backoffice/cmd/internal/session"
)

// Hub tracks connected clients by user ID and fans session actions out to them.
//
// Join, Leave and Publish are safe for concurrent use. Publish never blocks: a client whose
// queue is full misses the frame.
type Hub struct {
	log *slog.Logger
	now func() time.Time

	mu    sync.RWMutex
	users map[string]map[string]*Client
}

// NewHub constructs an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:   log,
		now:   time.Now,
		users: make(map[string]map[string]*Client),
	}
}

// Join registers c under its user.
func (h *Hub) Join(c *Client) {
	if h == nil || c == nil || c.ID == "" || c.UserID == "" {
		return
	}

	h.mu.Lock()
	set := h.users[c.UserID]
	if set == nil {
		set = make(map[string]*Client)
		h.users[c.UserID] = set
	}
	set[c.ID] = c
	h.mu.Unlock()

	h.log.Debug("sessionsync.client.join", "user_id", c.UserID, "client_id", c.ID)
}

// Leave unregisters c and then signals it to stop.
func (h *Hub) Leave(c *Client) {
	if h == nil || c == nil {
		return
	}

	h.mu.Lock()
	if set := h.users[c.UserID]; set != nil {
		delete(set, c.ID)
		if len(set) == 0 {
			delete(h.users, c.UserID)
		}
	}
	h.mu.Unlock()

	c.Close()
	h.log.Debug("sessionsync.client.leave", "user_id", c.UserID, "client_id", c.ID)
}

// Clients returns the number of connected clients for userID.
func (h *Hub) Clients(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Publish sends a redacted copy of a to every client of userID and reports how many frames
// were queued and how many were dropped.
func (h *Hub) Publish(userID string, a session.Action) (delivered, dropped int) {
	if h == nil || userID == "" || !a.Type.Known() {
		return 0, 0
	}

	env, err := ActionEnvelope(a, h.now())
	if err != nil {
		h.log.Error("sessionsync.publish.encode_fail", "action", a.Type, "err", err)
		return 0, 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.users[userID] {
		if c.offer(env) {
			delivered++
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		h.log.Warn("sessionsync.publish.dropped", "user_id", userID, "action", a.Type, "dropped", dropped)
	}
	return delivered, dropped
}

// CloseAll stops every client. Used on server shutdown since hijacked connections outlive
// http.Server.Shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	users := h.users
	h.users = make(map[string]map[string]*Client)
	h.mu.Unlock()

	for _, set := range users {
		for _, c := range set {
			c.Close()
		}
	}
}
