package autoscaler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/cold-autoscaler/internal/logger"
	"github.com/OldStager01/cold-autoscaler/internal/policy"
	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

// Trigger describes what a single iteration should do. Up and down bypass
// the policy; auto runs the normal decision path.
type Trigger struct {
	Action      policy.Action
	TargetNodes int
	Reason      string
}

// RunOnce executes one iteration synchronously on the caller's context.
// Failures inside the iteration are reported in the result; an error is
// returned only for an unusable trigger.
func (l *Loop) RunOnce(ctx context.Context, trigger Trigger) (*models.CycleResult, error) {
	if trigger.Action == "" {
		trigger.Action = policy.ActionAuto
	}

	var decide func(ctx context.Context, cycle *models.CycleResult) (*models.ScaleDecision, error)
	switch trigger.Action {
	case policy.ActionAuto:
		decide = l.decideFromTelemetry
	case policy.ActionUp, policy.ActionDown:
		nodes := trigger.TargetNodes
		if trigger.Action == policy.ActionUp && nodes <= 0 {
			nodes = l.config.ScaleUpNodes
		}
		d, err := policy.Override(trigger.Action, nodes, l.config.ColdRegions, trigger.Reason)
		if err != nil {
			return nil, err
		}
		decide = func(context.Context, *models.CycleResult) (*models.ScaleDecision, error) { return &d, nil }
	default:
		return nil, fmt.Errorf("%w: %q", policy.ErrUnknownAction, trigger.Action)
	}

	cycle := models.NewCycleResult(string(trigger.Action))
	pub := l.config.Publisher
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		pub = pub.WithTraceID(traceID)
	}

	decision, err := decide(ctx, cycle)
	switch {
	case errors.Is(err, ErrDecisionUnavailable):
		pub.DecisionUnavailable(cycle.ID, err)
	case err != nil:
		pub.TelemetryUnavailable(cycle.ID, err)
	default:
		cycle.Decision = decision
		pub.DecisionMade(cycle.ID, decision)
		if l.config.Metrics != nil {
			l.config.Metrics.IncDecision(string(decision.Trigger))
		}

		if decision.ShouldScale {
			pub.ScalingStarted(cycle.ID, decision)
			cycle.Results = l.config.Controller.Apply(ctx, *decision, l.config.Inventory)
			for _, r := range cycle.Results {
				pub.RegionResult(cycle.ID, r)
				if l.config.Metrics != nil {
					l.config.Metrics.IncRegionAction(r.Region, string(r.Status))
					if r.Status == models.ActionUpdated {
						l.config.Metrics.SetColdMaxNodes(r.Region, r.TargetBounds.Max)
					}
				}
			}
		}
	}

	cycle.Finish()
	l.record(cycle)
	pub.CycleComplete(cycle)

	return cycle, nil
}

// decideFromTelemetry fetches both signals, classifies and decides. A
// non-nil error means the cycle was skipped.
func (l *Loop) decideFromTelemetry(ctx context.Context, cycle *models.CycleResult) (*models.ScaleDecision, error) {
	log := logger.WithCycle(cycle.ID)

	snapshot, err := l.config.Source.FetchTraffic(ctx)
	if err != nil {
		l.skip(cycle, "traffic", err)
		return nil, err
	}
	latency, err := l.config.Source.FetchLatency(ctx)
	if err != nil {
		l.skip(cycle, "latency", err)
		return nil, err
	}

	traffic := l.config.Classifier.Classify(snapshot)
	cycle.Traffic = &traffic
	cycle.Latency = &latency

	if l.config.Metrics != nil {
		l.config.Metrics.SetSignals(traffic.PercentageFor(models.RegionAsia), traffic.Total, latency.HotRegionsAvgLatencyMs)
	}

	decision, err := l.config.Decider.Decide(ctx, traffic, latency)
	if err != nil {
		log.WithError(err).Warn("Decision source failed, skipping cycle")
		err = fmt.Errorf("%w: %w", ErrDecisionUnavailable, err)
		cycle.Skipped = true
		cycle.SkipReason = err.Error()
		return nil, err
	}
	return &decision, nil
}

func (l *Loop) skip(cycle *models.CycleResult, signal string, err error) {
	cycle.Skipped = true
	cycle.SkipReason = err.Error()

	if l.config.Metrics != nil {
		l.config.Metrics.IncTelemetryError(signal)
	}
	logger.WithCycle(cycle.ID).WithError(err).Warnf("No %s telemetry, skipping cycle", signal)
}

func (l *Loop) record(cycle *models.CycleResult) {
	l.lastMu.Lock()
	l.last = cycle
	l.lastMu.Unlock()

	outcome := "applied"
	switch {
	case cycle.Skipped:
		outcome = "skipped"
	case cycle.Decision == nil || !cycle.Decision.ShouldScale:
		outcome = "no_change"
	case cycle.HasFailures():
		outcome = "partial"
	}
	if l.config.Metrics != nil {
		l.config.Metrics.ObserveCycle(cycle.Action, outcome, time.Duration(cycle.DurationMs)*time.Millisecond)
		if cycle.Skipped {
			l.config.Metrics.IncSkippedCycle()
		}
	}

	fields := map[string]interface{}{
		"cycle_id":    cycle.ID,
		"action":      cycle.Action,
		"outcome":     outcome,
		"duration_ms": cycle.DurationMs,
		"succeeded":   cycle.Succeeded,
		"unchanged":   cycle.Unchanged,
		"failed":      cycle.Failed,
	}
	if d := cycle.Decision; d != nil {
		fields["should_scale"] = d.ShouldScale
		fields["trigger"] = d.Trigger
		fields["reason"] = d.Reason
		fields["target_nodes"] = d.TargetNodeCount
	}

	entry := logger.WithFields(fields)
	switch {
	case cycle.Skipped:
		entry.Warn("Autoscaler cycle skipped: " + cycle.SkipReason)
	case cycle.HasFailures():
		entry.Warn("Autoscaler cycle completed with failures")
	default:
		entry.Info("Autoscaler cycle completed")
	}
}

// LastCycle returns the most recent iteration result, or nil.
func (l *Loop) LastCycle() *models.CycleResult {
	l.lastMu.RLock()
	defer l.lastMu.RUnlock()
	return l.last
}
