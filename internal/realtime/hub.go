// Package realtime pushes session-change events to connected clients.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/taufik7000/efarina-finance-flow/internal/backend"
)

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans payloads out to subscribers keyed by session id. Registration is
// synchronous; broadcasts are delivered in order by a single loop.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]map[Subscriber]struct{}
	stopped   bool
	broadcast chan message
	done      chan struct{}
	stopOnce  sync.Once
}

type message struct {
	key     string
	payload []byte
}

// NewHub creates a Hub and starts its loop.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		broadcast: make(chan message),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case msg := <-h.broadcast:
			h.mu.Lock()
			if clients, ok := h.clients[msg.key]; ok {
				for c := range clients {
					if err := c.Send(msg.payload); err != nil {
						c.Close()
						delete(clients, c)
					}
				}
				if len(clients) == 0 {
					delete(h.clients, msg.key)
				}
			}
			h.mu.Unlock()
		case <-h.done:
			h.mu.Lock()
			h.stopped = true
			for _, clients := range h.clients {
				for c := range clients {
					c.Close()
				}
			}
			h.clients = map[string]map[Subscriber]struct{}{}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a client to the stream of key.
func (h *Hub) Register(key string, client Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		client.Close()
		return
	}
	if _, ok := h.clients[key]; !ok {
		h.clients[key] = make(map[Subscriber]struct{})
	}
	h.clients[key][client] = struct{}{}
}

func (h *Hub) Unregister(key string, client Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[key]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, key)
		}
	}
}

// Broadcast sends payload to every client of key.
func (h *Hub) Broadcast(key string, payload []byte) {
	select {
	case h.broadcast <- message{key: key, payload: payload}:
	case <-h.done:
	}
}

// Publish encodes ev and broadcasts it to the clients of sessionID.
func (h *Hub) Publish(sessionID string, ev backend.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	h.Broadcast(sessionID, payload)
	return nil
}

// Count reports how many clients listen on key.
func (h *Hub) Count(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[key])
}

// Stop closes every client and ends the loop.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
