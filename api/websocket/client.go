package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Client is one dashboard connection. An empty region receives every
// event; otherwise only events for that cluster region and events that
// carry no region.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	settings Settings

	mu     sync.RWMutex
	region string
}

func NewClient(hub *Hub, conn *websocket.Conn, region string) *Client {
	settings := hub.Settings()
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, settings.ClientBuffer),
		settings: settings,
		region:   region,
	}
}

func (c *Client) Region() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.region
}

func (c *Client) setRegion(region string) {
	c.mu.Lock()
	c.region = region
	c.mu.Unlock()
}

// Wants reports whether a message for region should reach this client.
func (c *Client) Wants(region string) bool {
	sub := c.Region()
	return sub == "" || region == "" || sub == region
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.settings.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.settings.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.settings.PongTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.settings.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Coalesce queued messages into the same frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		region := strings.ToLower(strings.TrimSpace(msg.Region))
		c.setRegion(region)
		logger.Debugf("WebSocket client subscribed to region %q", region)
		c.sendConfirmation("subscribed", region)
	case "unsubscribe":
		old := c.Region()
		c.setRegion("")
		c.sendConfirmation("unsubscribed", old)
	}
}

func (c *Client) sendConfirmation(action, region string) {
	msg := &OutgoingMessage{
		Type:      MessageTypeSubscription,
		Region:    region,
		Timestamp: time.Now(),
		Message:   action,
	}
	data, err := msg.JSON()
	if err != nil {
		logger.Errorf("Failed to marshal confirmation: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Warn("Client send channel full, dropping confirmation")
	}
}

// ServeWebSocket upgrades the request and attaches the client to hub. The
// optional region query parameter sets the initial subscription.
func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	settings := hub.Settings()
	upgrader := websocket.Upgrader{
		ReadBufferSize:  settings.ReadBufferSize,
		WriteBufferSize: settings.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return func(c *gin.Context) {
		if hub.Full() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many websocket connections"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(hub, conn, c.Query("region"))
		if !hub.Register(client) {
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
