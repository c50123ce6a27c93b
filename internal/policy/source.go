package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OldStager01/cold-autoscaler/pkg/models"
)

var ErrUnknownAction = errors.New("unknown action")

type Action string

const (
	ActionUp   Action = "up"
	ActionDown Action = "down"
	ActionAuto Action = "auto"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionUp, ActionDown, ActionAuto:
		return a, nil
	case "":
		return ActionAuto, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// DecisionSource produces a scaling decision from the classified signals of
// one cycle.
type DecisionSource interface {
	Decide(ctx context.Context, traffic models.RegionalTraffic, latency models.LatencySnapshot) (models.ScaleDecision, error)
}

// ThresholdSource is the deterministic rule-based DecisionSource.
type ThresholdSource struct {
	thresholds  models.ScalingThresholds
	coldRegions []string
}

func NewThresholdSource(thresholds models.ScalingThresholds, coldRegions []string) *ThresholdSource {
	return &ThresholdSource{
		thresholds:  thresholds,
		coldRegions: NormalizeRegions(coldRegions),
	}
}

func (s *ThresholdSource) Decide(_ context.Context, traffic models.RegionalTraffic, latency models.LatencySnapshot) (models.ScaleDecision, error) {
	return Decide(traffic, latency, s.thresholds, s.coldRegions), nil
}

func (s *ThresholdSource) Thresholds() models.ScalingThresholds {
	return s.thresholds
}

func (s *ThresholdSource) ColdRegions() []string {
	out := make([]string, len(s.coldRegions))
	copy(out, s.coldRegions)
	return out
}

// Override builds a forced decision for an administrative up or down action.
func Override(action Action, targetNodes int, regions []string, reason string) (models.ScaleDecision, error) {
	var nodes int
	switch action {
	case ActionUp:
		if targetNodes <= 0 {
			return models.ScaleDecision{}, fmt.Errorf("scale up requires a positive node count, got %d", targetNodes)
		}
		nodes = targetNodes
	case ActionDown:
		nodes = 0
	default:
		return models.ScaleDecision{}, fmt.Errorf("%w: %q cannot override the policy", ErrUnknownAction, action)
	}

	if reason == "" {
		reason = fmt.Sprintf("Manual %s to %d nodes", action, nodes)
	}

	return models.ScaleDecision{
		ShouldScale:     true,
		TargetRegions:   NormalizeRegions(regions),
		TargetNodeCount: nodes,
		Trigger:         models.TriggerManual,
		Reason:          reason,
	}, nil
}
