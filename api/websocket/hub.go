package websocket

import (
	"sync"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/pkg/config"
)

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *OutgoingMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	settings   Settings
}

func NewHub(cfg *config.WebSocketConfig) *Hub {
	settings := NewSettings(cfg)
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *OutgoingMessage, settings.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		settings:   settings,
	}
}

func (h *Hub) Settings() Settings {
	return h.settings
}

// Run serves registrations and broadcasts until Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logger.Infof("WebSocket client connected (total: %d)", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Infof("WebSocket client disconnected (total: %d)", total)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// deliver sends msg to every client subscribed to its region. Clients whose
// buffer is full are dropped.
func (h *Hub) deliver(msg *OutgoingMessage) {
	data, err := msg.JSON()
	if err != nil {
		logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.Wants(msg.Region) {
			continue
		}
		select {
		case client.send <- data:
		default:
			delete(h.clients, client)
			close(client.send)
			logger.Warn("WebSocket client too slow, disconnected")
		}
	}
}

func (h *Hub) Broadcast(msg *OutgoingMessage) {
	select {
	case h.broadcast <- msg:
	default:
		logger.Warn("Broadcast channel full, dropping message")
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Full reports whether the connection limit is reached.
func (h *Hub) Full() bool {
	return h.ClientCount() >= h.settings.MaxConnections
}

func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
