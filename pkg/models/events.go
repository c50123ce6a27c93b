package models

import "time"

type EventType string

const (
	EventTypeDecisionMade         EventType = "decision_made"
	EventTypeScalingStarted       EventType = "scaling_started"
	EventTypeRegionUpdated        EventType = "region_updated"
	EventTypeRegionUnchanged      EventType = "region_unchanged"
	EventTypeRegionFailed         EventType = "region_failed"
	EventTypeTelemetryUnavailable EventType = "telemetry_unavailable"
	EventTypeDecisionUnavailable  EventType = "decision_unavailable"
	EventTypeCycleComplete        EventType = "cycle_complete"
	EventTypeLoopStarted          EventType = "loop_started"
	EventTypeLoopStopped          EventType = "loop_stopped"
)

// RegionEventType maps a cluster action outcome to the event announcing it.
func RegionEventType(status ActionStatus) EventType {
	switch status {
	case ActionUpdated:
		return EventTypeRegionUpdated
	case ActionNoChange:
		return EventTypeRegionUnchanged
	default:
		return EventTypeRegionFailed
	}
}

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

func (s EventSeverity) rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// AtLeast orders severities info < warning < critical. Unknown values rank
// as info.
func (s EventSeverity) AtLeast(min EventSeverity) bool {
	return s.rank() >= min.rank()
}

// Event is the envelope published on the in-process bus. Region is a cloud
// region name ("asia-southeast1") for per-cluster events and empty otherwise.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	Region    string        `json:"region,omitempty"`
	CycleID   string        `json:"cycle_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
}

func NewEvent(eventType EventType, region, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		Region:    region,
		Timestamp: time.Now().UTC(),
		Message:   message,
	}
}

// NewRegionEvent announces the outcome of one cluster action. Failures are
// critical.
func NewRegionEvent(cycleID string, result ClusterActionResult) *Event {
	msg := result.Message
	severity := SeverityInfo
	if result.IsError() {
		msg = "Scaling failed: " + result.Error
		severity = SeverityCritical
	}
	e := NewEvent(RegionEventType(result.Status), result.Region, msg)
	e.Severity = severity
	e.CycleID = cycleID
	e.Data = result
	return e
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithCycle(cycleID string) *Event {
	e.CycleID = cycleID
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}
