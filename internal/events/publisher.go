package events

import (
	"fmt"

	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

// WithTraceID returns a publisher stamping traceID on every event. A nil
// publisher stays nil.
func (p *Publisher) WithTraceID(traceID string) *Publisher {
	if p == nil {
		return nil
	}
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p == nil || p.bus == nil {
		return
	}
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) DecisionMade(cycleID string, decision *models.ScaleDecision) {
	msg := fmt.Sprintf("Scaling decision: %s (%s)", decision.Action(), decision.Trigger)
	event := models.NewEvent(models.EventTypeDecisionMade, "", msg).
		WithCycle(cycleID).
		WithData(decision)
	p.publish(event)
}

func (p *Publisher) ScalingStarted(cycleID string, decision *models.ScaleDecision) {
	msg := fmt.Sprintf("Scaling %d regions to max %d nodes", len(decision.TargetRegions), decision.TargetNodeCount)
	event := models.NewEvent(models.EventTypeScalingStarted, "", msg).
		WithCycle(cycleID).
		WithData(decision)
	p.publish(event)
}

// RegionResult publishes the outcome of one cluster action.
func (p *Publisher) RegionResult(cycleID string, result models.ClusterActionResult) {
	p.publish(models.NewRegionEvent(cycleID, result))
}

func (p *Publisher) TelemetryUnavailable(cycleID string, err error) {
	event := models.NewEvent(models.EventTypeTelemetryUnavailable, "", "Telemetry unavailable, cycle skipped").
		WithCycle(cycleID).
		WithSeverity(models.SeverityWarning).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}

// DecisionUnavailable reports a cycle skipped because the decision source
// failed on otherwise valid telemetry.
func (p *Publisher) DecisionUnavailable(cycleID string, err error) {
	event := models.NewEvent(models.EventTypeDecisionUnavailable, "", "Decision source failed, cycle skipped").
		WithCycle(cycleID).
		WithSeverity(models.SeverityWarning).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}

func (p *Publisher) CycleComplete(cycle *models.CycleResult) {
	event := models.NewEvent(models.EventTypeCycleComplete, "", cycle.Summary()).
		WithCycle(cycle.ID).
		WithData(cycle)
	if cycle.HasFailures() {
		event.WithSeverity(models.SeverityWarning)
	}
	p.publish(event)
}

func (p *Publisher) LoopStarted(interval string) {
	p.publish(models.NewEvent(models.EventTypeLoopStarted, "", "Autoscaler loop started").
		WithData(map[string]interface{}{"interval": interval}))
}

func (p *Publisher) LoopStopped() {
	p.publish(models.NewEvent(models.EventTypeLoopStopped, "", "Autoscaler loop stopped"))
}
