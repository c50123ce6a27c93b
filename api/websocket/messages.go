package websocket

import (
	"encoding/json"
	"time"

	"github.com/OldStager01/cold-autoscaler/pkg/config"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

type MessageType string

const (
	MessageTypeDecision       MessageType = "decision"
	MessageTypeScalingStarted MessageType = "scaling_started"
	MessageTypeRegionUpdate   MessageType = "region_update"
	MessageTypeRegionFailed   MessageType = "region_failed"
	MessageTypeAlert          MessageType = "alert"
	MessageTypeCycle          MessageType = "cycle"
	MessageTypeLoopState      MessageType = "loop_state"
	MessageTypeSubscription   MessageType = "subscription_update"
	messageTypeNone           MessageType = ""
)

// OutgoingMessage is the frame sent to dashboard clients.
type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	Event     string      `json:"event,omitempty"`
	Region    string      `json:"region,omitempty"`
	CycleID   string      `json:"cycle_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func (m *OutgoingMessage) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromEvent converts a bus event. It returns nil for events that are not
// streamed.
func FromEvent(event *models.Event) *OutgoingMessage {
	msgType := mapEventType(event.Type)
	if msgType == messageTypeNone {
		return nil
	}
	return &OutgoingMessage{
		Type:      msgType,
		Event:     string(event.Type),
		Region:    event.Region,
		CycleID:   event.CycleID,
		Timestamp: event.Timestamp,
		Severity:  string(event.Severity),
		Message:   event.Message,
		Data:      event.Data,
	}
}

func mapEventType(eventType models.EventType) MessageType {
	switch eventType {
	case models.EventTypeDecisionMade:
		return MessageTypeDecision
	case models.EventTypeScalingStarted:
		return MessageTypeScalingStarted
	case models.EventTypeRegionUpdated, models.EventTypeRegionUnchanged:
		return MessageTypeRegionUpdate
	case models.EventTypeRegionFailed:
		return MessageTypeRegionFailed
	case models.EventTypeTelemetryUnavailable, models.EventTypeDecisionUnavailable:
		return MessageTypeAlert
	case models.EventTypeCycleComplete:
		return MessageTypeCycle
	case models.EventTypeLoopStarted, models.EventTypeLoopStopped:
		return MessageTypeLoopState
	default:
		return messageTypeNone
	}
}

type IncomingMessage struct {
	Type   string `json:"type"`
	Region string `json:"region,omitempty"`
}

// Settings are the connection limits and timings applied to every client.
type Settings struct {
	MaxConnections  int
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	BroadcastBuffer int
	ClientBuffer    int
}

func DefaultSettings() Settings {
	return Settings{
		MaxConnections:  100,
		PingInterval:    54 * time.Second,
		WriteTimeout:    10 * time.Second,
		PongTimeout:     60 * time.Second,
		MaxMessageSize:  512,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		BroadcastBuffer: 256,
		ClientBuffer:    256,
	}
}

// NewSettings overlays the configured values on DefaultSettings.
func NewSettings(cfg *config.WebSocketConfig) Settings {
	s := DefaultSettings()
	if cfg == nil {
		return s
	}
	if cfg.MaxConnections > 0 {
		s.MaxConnections = cfg.MaxConnections
	}
	if cfg.PingInterval > 0 {
		s.PingInterval = cfg.PingInterval
	}
	if cfg.WriteTimeout > 0 {
		s.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.PongTimeout > 0 {
		s.PongTimeout = cfg.PongTimeout
	}
	if cfg.MaxMessageSize > 0 {
		s.MaxMessageSize = cfg.MaxMessageSize
	}
	if cfg.ReadBufferSize > 0 {
		s.ReadBufferSize = cfg.ReadBufferSize
	}
	if cfg.WriteBufferSize > 0 {
		s.WriteBufferSize = cfg.WriteBufferSize
	}
	if cfg.BroadcastBuffer > 0 {
		s.BroadcastBuffer = cfg.BroadcastBuffer
	}
	if cfg.ClientBuffer > 0 {
		s.ClientBuffer = cfg.ClientBuffer
	}
	// Pings must go out before the peer's pong deadline lapses.
	if s.PingInterval >= s.PongTimeout {
		s.PingInterval = s.PongTimeout * 9 / 10
	}
	return s
}
