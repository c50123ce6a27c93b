package websocket

import (
	"sync"
	"sync/atomic"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

// EventBridge turns bus events into stream messages. Events arriving while
// nobody is connected are consumed and discarded so the bus never backs up.
type EventBridge struct {
	hub    *Hub
	events <-chan *models.Event
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once

	forwarded atomic.Int64
	discarded atomic.Int64
}

func NewEventBridge(hub *Hub, events <-chan *models.Event) *EventBridge {
	return &EventBridge{
		hub:    hub,
		events: events,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.Debug("Event stream bridge started")
}

func (b *EventBridge) Stop() {
	b.once.Do(func() { close(b.stop) })
	<-b.done
	logger.WithFields(map[string]interface{}{
		"forwarded": b.forwarded.Load(),
		"discarded": b.discarded.Load(),
	}).Debug("Event stream bridge stopped")
}

// Forwarded counts events handed to the hub.
func (b *EventBridge) Forwarded() int64 { return b.forwarded.Load() }

func (b *EventBridge) run() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		case event, ok := <-b.events:
			if !ok {
				return
			}
			b.forward(event)
		}
	}
}

func (b *EventBridge) forward(event *models.Event) {
	if b.hub.ClientCount() == 0 {
		b.discarded.Add(1)
		return
	}
	msg := FromEvent(event)
	if msg == nil {
		b.discarded.Add(1)
		return
	}
	b.hub.Broadcast(msg)
	b.forwarded.Add(1)
}
