package server

import (
	"sync"

	"github.com/broadside/server/internal/dispatcher"
)

// Hub is the set of connected clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	order   []string
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Add registers a client.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID()]; ok {
		return
	}
	h.clients[c.ID()] = c
	h.order = append(h.order, c.ID())
}

// Remove forgets a client.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID()]; !ok {
		return
	}
	delete(h.clients, c.ID())
	for i, id := range h.order {
		if id == c.ID() {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := make([]*Client, 0, len(h.order))
	for _, id := range h.order {
		list = append(list, h.clients[id])
	}
	return list
}

// Each calls fn for every client in connection order. fn runs without the hub lock held.
func (h *Hub) Each(fn func(dispatcher.Client)) {
	for _, c := range h.snapshot() {
		fn(c)
	}
}

// Broadcast sends the same message to every client.
func (h *Hub) Broadcast(msgType string, payload any) {
	for _, c := range h.snapshot() {
		if err := c.Send(msgType, payload); err != nil {
			c.logger.Debug("broadcast failed", "type", msgType, "error", err)
		}
	}
}

// Lookup finds the client registered as userID.
func (h *Hub) Lookup(userID string) (dispatcher.Client, bool) {
	if userID == "" {
		return nil, false
	}
	for _, c := range h.snapshot() {
		if c.UserID() == userID {
			return c, true
		}
	}
	return nil, false
}

// Users returns how many clients have registered.
func (h *Hub) Users() int {
	n := 0
	for _, c := range h.snapshot() {
		if c.UserID() != "" {
			n++
		}
	}
	return n
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	for _, c := range h.snapshot() {
		c.Close()
	}
}
