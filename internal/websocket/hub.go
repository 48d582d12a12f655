package websocket

import (
	"context"
	"log"
	"sync"

	"github.com/xelth-com/loci/internal/metrics"
)

// Hub maintains the topic groups of active clients and fans messages out to them
type Hub struct {
	// Topic -> set of clients
	groups map[string]map[*Client]bool

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe access to groups
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		groups:     make(map[string]map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			group, ok := h.groups[client.topic]
			if !ok {
				group = make(map[*Client]bool)
				h.groups[client.topic] = group
			}
			group[client] = true
			metrics.WSSubscribers.Inc()
			log.Printf("🔌 Subscriber %s joined %s", client.ID, client.topic)
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			// never-registered clients are ignored
			if group, ok := h.groups[client.topic]; ok && group[client] {
				delete(group, client)
				if len(group) == 0 {
					delete(h.groups, client.topic)
				}
				close(client.send)
				metrics.WSSubscribers.Dec()
				log.Printf("📴 Subscriber %s left %s", client.ID, client.topic)
			}
			h.mu.Unlock()
		}
	}
}

// subscribe queues a registration; false once the hub has stopped
func (h *Hub) subscribe(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// unsubscribe queues a removal; a no-op once the hub has stopped
func (h *Hub) unsubscribe(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish implements broadcast.Publisher. Delivery is best-effort: clients
// whose buffer is full miss the message.
func (h *Hub) Publish(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.groups[topic] {
		select {
		case client.send <- payload:
		default:
			metrics.BroadcastDroppedTotal.Inc()
		}
	}
}

// Subscribers returns the number of clients registered on topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[topic])
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, group := range h.groups {
		for client := range group {
			close(client.send)
			metrics.WSSubscribers.Dec()
		}
		delete(h.groups, topic)
	}
}
